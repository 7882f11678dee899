package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/nahankar/shatika/internal/domain"
)

// CanvasSelector is the element captured as the thumbnail.
const CanvasSelector = "#canvas"

var pageTemplate = template.Must(template.New("design").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
html, body { margin: 0; padding: 0; background: transparent; }
#canvas { position: relative; overflow: hidden; }
.shape { position: absolute; transform-origin: center center; }
</style>
</head>
<body>
<div id="canvas" style="width: {{.Width}}px; height: {{.Height}}px;{{if .BackgroundColor}} background-color: {{.BackgroundColor}};{{end}}{{if .BackgroundURL}} background-image: url('{{.BackgroundURL}}'); background-size: cover; background-position: center;{{end}}">
{{- range .Shapes}}
<div class="shape" data-id="{{.ID}}" style="left: {{.X}}px; top: {{.Y}}px; width: {{.Width}}px; height: {{.Height}}px; transform: rotate({{.Rotation}}deg);{{if .Fill}} background-color: {{.Fill}};{{end}}{{if .MaskURL}} -webkit-mask-image: url('{{.MaskURL}}'); mask-image: url('{{.MaskURL}}'); -webkit-mask-repeat: no-repeat; mask-repeat: no-repeat; -webkit-mask-size: {{.MaskSizeX}}% {{.MaskSizeY}}%; mask-size: {{.MaskSizeX}}% {{.MaskSizeY}}%; -webkit-mask-position: {{.MaskPosX}}% {{.MaskPosY}}%; mask-position: {{.MaskPosX}}% {{.MaskPosY}}%;{{end}}"></div>
{{- end}}
</div>
</body>
</html>
`))

type pageData struct {
	Width           int
	Height          int
	BackgroundURL   string
	BackgroundColor string
	Shapes          []shapeData
}

type shapeData struct {
	ID        string
	X, Y      float64
	Width     float64
	Height    float64
	Rotation  float64
	Fill      string
	MaskURL   string
	MaskSizeX float64
	MaskSizeY float64
	MaskPosX  float64
	MaskPosY  float64
}

// BuildPage renders the HTML document the headless browser rasterizes.
// Every value is escaped by html/template, so unsafe URLs never reach the
// browser.
func BuildPage(design *domain.Design) (string, error) {
	data := pageData{
		Width:           design.Width,
		Height:          design.Height,
		BackgroundURL:   design.BackgroundURL,
		BackgroundColor: design.BackgroundColor,
		Shapes:          make([]shapeData, 0, len(design.Shapes)),
	}
	for _, s := range design.Shapes {
		sd := shapeData{
			ID:        s.ID,
			X:         s.X,
			Y:         s.Y,
			Width:     s.Width,
			Height:    s.Height,
			Rotation:  s.Rotation,
			Fill:      s.Fill,
			MaskURL:   s.MaskURL,
			MaskSizeX: 100,
			MaskSizeY: 100,
		}
		if s.Crop != nil {
			sd.MaskSizeX, sd.MaskPosX = cropAxis(s.Crop.X, s.Crop.Width)
			sd.MaskSizeY, sd.MaskPosY = cropAxis(s.Crop.Y, s.Crop.Height)
		}
		data.Shapes = append(data.Shapes, sd)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute page template: %w", err)
	}
	return buf.String(), nil
}

// cropAxis scales the mask so the cropped span fills the shape and returns
// the CSS size and position percentages for one axis. A percentage
// position p places point p of the image at point p of the box, so the
// crop offset maps to offset / (1 - span).
func cropAxis(offset, span float64) (size, pos float64) {
	if span <= 0 {
		return 100, 0
	}
	size = 100 / span
	if span >= 1 {
		return size, 0
	}
	pos = offset / (1 - span) * 100
	return size, min(max(pos, 0), 100)
}
