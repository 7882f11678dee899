package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/pkg/database"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// FacetRepository implements repository.FacetRepository for one facet kind.
// The three kinds share a schema and differ only by table.
type FacetRepository struct {
	db    database.DBTX
	kind  domain.FacetKind
	table string
}

// NewFacetRepository creates a repository for facets of the given kind.
func NewFacetRepository(db database.DBTX, kind domain.FacetKind) *FacetRepository {
	return &FacetRepository{db: db, kind: kind, table: kind.Table()}
}

// Kind returns the facet kind stored by this repository.
func (r *FacetRepository) Kind() domain.FacetKind {
	return r.kind
}

// Create inserts a new facet.
func (r *FacetRepository) Create(ctx context.Context, f *domain.Facet) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, slug, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, r.table)

	_, err := r.db.Exec(ctx, query, f.ID, f.Name, f.Slug, f.Description, f.ImageURL, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists(string(r.kind), "slug", f.Slug)
		}
		return fmt.Errorf("insert %s: %w", r.kind, err)
	}
	return nil
}

// GetByID retrieves a facet by its ID.
func (r *FacetRepository) GetByID(ctx context.Context, id string) (*domain.Facet, error) {
	query := fmt.Sprintf(`
		SELECT id, name, slug, description, image_url, created_at, updated_at
		FROM %s
		WHERE id = $1`, r.table)

	var f domain.Facet
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.Name, &f.Slug, &f.Description, &f.ImageURL, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(string(r.kind), id)
		}
		return nil, fmt.Errorf("get %s: %w", r.kind, err)
	}
	f.Kind = r.kind
	return &f, nil
}

// List returns all facets in the requested order.
func (r *FacetRepository) List(ctx context.Context, sort repository.SortOrder) ([]domain.Facet, error) {
	if sort == repository.SortPriceAsc || sort == repository.SortPriceDesc {
		sort = repository.SortNameAsc
	}
	query := fmt.Sprintf(`
		SELECT id, name, slug, description, image_url, created_at, updated_at
		FROM %s
		ORDER BY %s`, r.table, sortClause(string(sort)))

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}
	defer rows.Close()

	facets := []domain.Facet{}
	for rows.Next() {
		f := domain.Facet{Kind: r.kind}
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.Description, &f.ImageURL, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.kind, err)
		}
		facets = append(facets, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", r.kind, err)
	}
	return facets, nil
}

// Update modifies an existing facet.
func (r *FacetRepository) Update(ctx context.Context, f *domain.Facet) error {
	f.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, slug = $2, description = $3, image_url = $4, updated_at = $5
		WHERE id = $6`, r.table)

	ct, err := r.db.Exec(ctx, query, f.Name, f.Slug, f.Description, f.ImageURL, f.UpdatedAt, f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists(string(r.kind), "slug", f.Slug)
		}
		return fmt.Errorf("update %s: %w", r.kind, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound(string(r.kind), f.ID)
	}
	return nil
}

// Delete removes a facet. A foreign key violation means products were
// attached after the caller's dependent check and is reported as
// apperrors.ErrHasDependents.
func (r *FacetRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("delete %s: %w", r.kind, apperrors.ErrHasDependents)
		}
		return fmt.Errorf("delete %s: %w", r.kind, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound(string(r.kind), id)
	}
	return nil
}

// Count returns the number of facets of this kind.
func (r *FacetRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table, err)
	}
	return count, nil
}
