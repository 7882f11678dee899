package domain

import (
	"time"
)

// Product represents a product in the catalog. Prices are in minor units.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	CategoryID  *string   `json:"category_id,omitempty"`
	MaterialID  *string   `json:"material_id,omitempty"`
	ArtID       *string   `json:"art_id,omitempty"`
	Images      []string  `json:"images"`
	Sizes       []string  `json:"sizes"`
	Colors      []string  `json:"colors"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AcceptsSize reports whether size is one of the product's sizes. A product
// that lists no sizes accepts any label.
func (p *Product) AcceptsSize(size string) bool {
	return len(p.Sizes) == 0 || contains(p.Sizes, size)
}

// AcceptsColor reports whether color is one of the product's colors. A
// product that lists no colors accepts any label.
func (p *Product) AcceptsColor(color string) bool {
	return len(p.Colors) == 0 || contains(p.Colors, color)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Ref is the id and display name of a referenced facet.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductSummary is the display projection used by cart and favorites
// listings.
type ProductSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	ImageURL string `json:"image_url,omitempty"`
	IsActive bool   `json:"is_active"`
	Category *Ref   `json:"category,omitempty"`
	Material *Ref   `json:"material,omitempty"`
	Art      *Ref   `json:"art,omitempty"`
}
