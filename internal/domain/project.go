package domain

import (
	"time"

	"github.com/nahankar/shatika/pkg/validator"
)

// MaxCanvasSide bounds both canvas dimensions in pixels.
const MaxCanvasSide = 4096

// MaxShapes bounds the number of shapes in one design.
const MaxShapes = 200

// Project is a saved design-your-own composition owned by an account.
type Project struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Name         string    `json:"name"`
	ProductID    *string   `json:"product_id,omitempty"`
	Design       Design    `json:"design"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Design is a composition of shapes over a background image.
type Design struct {
	Width           int     `json:"width" validate:"required,gt=0,lte=4096"`
	Height          int     `json:"height" validate:"required,gt=0,lte=4096"`
	BackgroundURL   string  `json:"background_url" validate:"omitempty,url"`
	BackgroundColor string  `json:"background_color" validate:"omitempty,hexcolor"`
	Shapes          []Shape `json:"shapes" validate:"max=200,dive"`
}

// Shape is one placement on the canvas. Position and size are in canvas
// pixels; rotation is in degrees clockwise around the shape's center.
type Shape struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width" validate:"gt=0"`
	Height   float64 `json:"height" validate:"gt=0"`
	Rotation float64 `json:"rotation" validate:"gte=-360,lte=360"`
	Fill     string  `json:"fill" validate:"omitempty,hexcolor"`
	MaskURL  string  `json:"mask_url" validate:"omitempty,url"`
	Crop     *Crop   `json:"crop,omitempty"`
}

// Crop selects the region of the mask image to use, as fractions of the
// image in [0, 1].
type Crop struct {
	X      float64 `json:"x" validate:"gte=0,lte=1"`
	Y      float64 `json:"y" validate:"gte=0,lte=1"`
	Width  float64 `json:"width" validate:"gt=0,lte=1"`
	Height float64 `json:"height" validate:"gt=0,lte=1"`
}

// Validate checks the design against its field constraints.
func (d *Design) Validate() error {
	return validator.Validate(d)
}
