package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func TestTraceQuery_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "GetCategory", "SELECT * FROM categories WHERE id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "db.GetCategory", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	attrs := make(map[string]string)
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetCategory", attrs["db.operation"])
	assert.Equal(t, "SELECT * FROM categories WHERE id = $1", attrs["db.statement"])
}

func TestTraceQuery_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "UpdateMaterial", "UPDATE materials SET name = $1 WHERE id = $2")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceQuery_ChildOfParent(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, end := TraceQuery(ctx, "ListArts", "SELECT * FROM arts")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	t.Run("slow query with error is logged", func(t *testing.T) {
		var buf bytes.Buffer
		SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))

		_, end := TraceQuery(context.Background(), "InsertProduct", "INSERT INTO products VALUES ($1)")
		end(errors.New("unique constraint violation"))

		out := buf.String()
		assert.Contains(t, out, "slow query detected")
		assert.Contains(t, out, "InsertProduct")
		assert.Contains(t, out, "unique constraint violation")
	})

	t.Run("fast query is not logged", func(t *testing.T) {
		var buf bytes.Buffer
		SetSlowQueryLogging(time.Hour, slog.New(slog.NewJSONHandler(&buf, nil)))

		_, end := TraceQuery(context.Background(), "Ping", "SELECT 1")
		end(nil)

		assert.NotContains(t, buf.String(), "slow query detected")
	})

	t.Run("disabled", func(t *testing.T) {
		SetSlowQueryLogging(0, nil)
		_, end := TraceQuery(context.Background(), "Ping", "SELECT 1")
		end(nil)
	})
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()

	for i := 0; i < 100; i++ {
		_, end := TraceQuery(context.Background(), "Concurrent", "SELECT 1")
		end(nil)
	}
	<-done
}
