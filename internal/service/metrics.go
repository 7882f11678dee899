package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for uploads and thumbnail renders.
type Metrics struct {
	uploads        *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
}

// NewMetrics creates the service collectors. They are registered with reg
// when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shatika_uploads_total",
			Help: "Total number of upload attempts by folder and result",
		}, []string{"folder", "result"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shatika_thumbnail_renders_total",
			Help: "Total number of thumbnail renders by result",
		}, []string{"result"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shatika_thumbnail_render_duration_seconds",
			Help:    "Duration of thumbnail renders in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.uploads, m.renders, m.renderDuration)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
