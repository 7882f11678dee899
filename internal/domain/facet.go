package domain

import (
	"time"
)

// FacetKind names one of the catalog classifications a product refers to.
type FacetKind string

const (
	FacetCategory FacetKind = "category"
	FacetMaterial FacetKind = "material"
	FacetArt      FacetKind = "art"
)

// FacetKinds returns every facet kind.
func FacetKinds() []FacetKind {
	return []FacetKind{FacetCategory, FacetMaterial, FacetArt}
}

// Table is the table holding facets of this kind.
func (k FacetKind) Table() string {
	switch k {
	case FacetCategory:
		return "categories"
	case FacetMaterial:
		return "materials"
	default:
		return "arts"
	}
}

// ProductColumn is the products column that references this kind.
func (k FacetKind) ProductColumn() string {
	return string(k) + "_id"
}

// Protected reports whether a facet of this kind may not be deleted while
// products still reference it. Deleting a material clears the reference.
func (k FacetKind) Protected() bool {
	return k == FacetCategory || k == FacetArt
}

// Facet is a category, material or art style.
type Facet struct {
	ID          string    `json:"id"`
	Kind        FacetKind `json:"-"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
