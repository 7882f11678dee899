// Package search defines the product search index used for free-text
// catalog queries.
package search

import (
	"context"
	"time"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
)

// Document is the indexed projection of a product.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CategoryID  string    `json:"category_id,omitempty"`
	MaterialID  string    `json:"material_id,omitempty"`
	ArtID       string    `json:"art_id,omitempty"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	Colors      []string  `json:"colors"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentFromProduct builds the index document for p.
func DocumentFromProduct(p *domain.Product) Document {
	return Document{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CategoryID:  deref(p.CategoryID),
		MaterialID:  deref(p.MaterialID),
		ArtID:       deref(p.ArtID),
		Price:       p.Price,
		Currency:    p.Currency,
		Colors:      p.Colors,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

// Query is a free-text search with the same filters as a product listing.
type Query struct {
	Text       string
	CategoryID *string
	MaterialID *string
	ArtID      *string
	MinPrice   *int64
	MaxPrice   *int64
	ActiveOnly bool
	// Sort is applied after relevance; the zero value ranks by score only.
	Sort   repository.SortOrder
	Offset int
	Limit  int
}

// Result holds the matching product ids in rank order and the total hit count.
type Result struct {
	IDs   []string
	Total int
}

// Index stores and queries product documents.
type Index interface {
	Index(ctx context.Context, doc Document) error
	BulkIndex(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q Query) (*Result, error)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
