package cache

import (
	"context"

	"github.com/nahankar/shatika/internal/domain"
)

// ProductCache stores resolved product summaries used by cart and
// favorites listings.
type ProductCache interface {
	// GetSummaries returns the cached summaries for ids and the ids that
	// were not cached.
	GetSummaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, []string, error)

	// SetSummaries caches the given summaries.
	SetSummaries(ctx context.Context, summaries map[string]domain.ProductSummary) error

	// Invalidate drops the summaries for ids.
	Invalidate(ctx context.Context, ids ...string) error

	// InvalidateAll drops every cached summary. Used when a category,
	// material or art changes since summaries embed their names.
	InvalidateAll(ctx context.Context) error
}

// Nop is a ProductCache that never caches.
type Nop struct{}

var _ ProductCache = Nop{}

// GetSummaries reports every id as missing.
func (Nop) GetSummaries(_ context.Context, ids []string) (map[string]domain.ProductSummary, []string, error) {
	return map[string]domain.ProductSummary{}, ids, nil
}

func (Nop) SetSummaries(context.Context, map[string]domain.ProductSummary) error { return nil }

func (Nop) Invalidate(context.Context, ...string) error { return nil }

func (Nop) InvalidateAll(context.Context) error { return nil }
