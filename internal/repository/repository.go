package repository

import (
	"context"
	"time"

	"github.com/nahankar/shatika/internal/domain"
)

// SortOrder names a list ordering accepted from clients.
type SortOrder string

// Accepted list orderings. A leading "-" sorts descending.
const (
	SortNameAsc      SortOrder = "name"
	SortNameDesc     SortOrder = "-name"
	SortCreatedAsc   SortOrder = "created_at"
	SortCreatedDesc  SortOrder = "-created_at"
	SortPriceAsc     SortOrder = "price"
	SortPriceDesc    SortOrder = "-price"
	defaultSortOrder           = SortCreatedDesc
)

// ParseSort maps a query value to a SortOrder. Unknown or empty values fall
// back to fallback; price orderings are only valid when allowPrice is set.
func ParseSort(v string, fallback SortOrder, allowPrice bool) SortOrder {
	switch s := SortOrder(v); s {
	case SortNameAsc, SortNameDesc, SortCreatedAsc, SortCreatedDesc:
		return s
	case SortPriceAsc, SortPriceDesc:
		if allowPrice {
			return s
		}
	}
	if fallback == "" {
		return defaultSortOrder
	}
	return fallback
}

// AccountRepository defines the interface for account persistence operations.
type AccountRepository interface {
	// Create inserts a new account with empty cart and favorites.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account, including its collections, by id.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByEmail retrieves an account by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// UpdateProfile writes the name, email and password hash.
	UpdateProfile(ctx context.Context, account *domain.Account) error

	// UpdateLastLogin stamps the last successful login.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// UpdateRole changes the account role.
	UpdateRole(ctx context.Context, id, role string) error

	// SaveCollections writes cart and favorites if the stored version still
	// equals account.Version, then increments account.Version. A version
	// mismatch returns apperrors.ErrConflict.
	SaveCollections(ctx context.Context, account *domain.Account) error

	// Delete removes the account together with its cart and favorites.
	Delete(ctx context.Context, id string) error

	// List returns accounts newest first, with the total count.
	List(ctx context.Context, offset, limit int) ([]domain.Account, int, error)

	// Count returns the number of accounts, and how many are admins.
	Count(ctx context.Context) (total int, admins int, err error)
}

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	// IDs restricts the result to the given products when non-empty.
	IDs        []string
	CategoryID *string
	MaterialID *string
	ArtID      *string
	Search     *string
	MinPrice   *int64
	MaxPrice   *int64
	ActiveOnly bool
	Sort       SortOrder
	Offset     int
	Limit      int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns products matching the filter along with the total count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// Exists reports whether a product with the id exists.
	Exists(ctx context.Context, id string) (bool, error)

	// GetSummaries resolves product ids to display summaries. Missing ids
	// are absent from the result map.
	GetSummaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, error)

	// CountByFacet counts products referencing the facet.
	CountByFacet(ctx context.Context, kind domain.FacetKind, facetID string) (int, error)

	// Count returns the number of products, and how many are active.
	Count(ctx context.Context) (total int, active int, err error)
}

// FacetRepository persists one kind of facet (categories, materials or arts).
type FacetRepository interface {
	// Kind is the facet kind this repository stores.
	Kind() domain.FacetKind

	Create(ctx context.Context, facet *domain.Facet) error
	GetByID(ctx context.Context, id string) (*domain.Facet, error)
	List(ctx context.Context, sort SortOrder) ([]domain.Facet, error)
	Update(ctx context.Context, facet *domain.Facet) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// ProjectRepository defines the interface for design project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error

	// GetByID returns the project only when it belongs to accountID.
	GetByID(ctx context.Context, accountID, id string) (*domain.Project, error)

	// ListByAccount returns the account's projects, most recently updated first.
	ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]domain.Project, int, error)

	Update(ctx context.Context, project *domain.Project) error

	// SetThumbnail records the rendered thumbnail URL.
	SetThumbnail(ctx context.Context, accountID, id, url string) error

	Delete(ctx context.Context, accountID, id string) error
	Count(ctx context.Context) (int, error)
}
