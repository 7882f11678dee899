package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/pkg/database"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

const productColumns = `id, name, slug, description, price, currency, category_id, material_id, art_id, images, sizes, colors, stock, is_active, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Currency,
		p.CategoryID,
		p.MaterialID,
		p.ArtID,
		nonNil(p.Images),
		nonNil(p.Sizes),
		nonNil(p.Colors),
		p.Stock,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return translateProductWriteError(err, p)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(ctx, query, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return r.scanProduct(ctx, query, slug)
}

// List returns a filtered, sorted page of products and the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	addEq := func(column string, v *string) {
		if v == nil {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, *v)
		argIndex++
	}
	if len(filter.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argIndex))
		args = append(args, filter.IDs)
		argIndex++
	}
	addEq("category_id", filter.CategoryID)
	addEq("material_id", filter.MaterialID)
	addEq("art_id", filter.ArtID)

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, sortClause(string(filter.Sort)), argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, max(filter.Offset, 0))

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)
	for rows.Next() {
		var p domain.Product
		if err := scanProductRow(rows, &p, &totalCount); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}
	return products, totalCount, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, currency = $5,
		    category_id = $6, material_id = $7, art_id = $8, images = $9, sizes = $10,
		    colors = $11, stock = $12, is_active = $13, updated_at = $14
		WHERE id = $15`

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Currency,
		p.CategoryID,
		p.MaterialID,
		p.ArtID,
		nonNil(p.Images),
		nonNil(p.Sizes),
		nonNil(p.Colors),
		p.Stock,
		p.IsActive,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return translateProductWriteError(err, p)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// Exists reports whether a product with the given ID exists.
func (r *ProductRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return exists, nil
}

// GetSummaries resolves ids to display summaries with facet names joined in.
func (r *ProductRepository) GetSummaries(ctx context.Context, ids []string) (_ map[string]domain.ProductSummary, err error) {
	result := make(map[string]domain.ProductSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `
		SELECT p.id, p.name, p.slug, p.price, p.currency, COALESCE(p.images[1], ''), p.is_active,
		       c.id, c.name, m.id, m.name, a.id, a.name
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN materials m ON m.id = p.material_id
		LEFT JOIN arts a ON a.id = p.art_id
		WHERE p.id = ANY($1)`

	ctx, end := database.TraceQuery(ctx, "GetProductSummaries", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get product summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s              domain.ProductSummary
			catID, catName *string
			matID, matName *string
			artID, artName *string
		)
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Slug, &s.Price, &s.Currency, &s.ImageURL, &s.IsActive,
			&catID, &catName, &matID, &matName, &artID, &artName,
		); err != nil {
			return nil, fmt.Errorf("scan product summary: %w", err)
		}
		s.Category = ref(catID, catName)
		s.Material = ref(matID, matName)
		s.Art = ref(artID, artName)
		result[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product summaries: %w", err)
	}
	return result, nil
}

// CountByFacet counts products referencing the given facet.
func (r *ProductRepository) CountByFacet(ctx context.Context, kind domain.FacetKind, facetID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM products WHERE %s = $1`, kind.ProductColumn())

	var count int
	if err := r.db.QueryRow(ctx, query, facetID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products by %s: %w", kind, err)
	}
	return count, nil
}

// Count returns the number of products and active products.
func (r *ProductRepository) Count(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM products`,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("count products: %w", err)
	}
	return total, active, nil
}

func (r *ProductRepository) scanProduct(ctx context.Context, query, key string) (*domain.Product, error) {
	var p domain.Product
	if err := scanProductRow(r.db.QueryRow(ctx, query, key), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", key)
		}
		return nil, err
	}
	return &p, nil
}

func scanProductRow(row pgx.Row, p *domain.Product, extra ...any) error {
	dest := []any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.CategoryID,
		&p.MaterialID,
		&p.ArtID,
		&p.Images,
		&p.Sizes,
		&p.Colors,
		&p.Stock,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan product: %w", err)
	}
	p.Images = nonNil(p.Images)
	p.Sizes = nonNil(p.Sizes)
	p.Colors = nonNil(p.Colors)
	return nil
}

func translateProductWriteError(err error, p *domain.Product) error {
	switch {
	case isUniqueViolation(err):
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	case isForeignKeyViolation(err):
		return apperrors.InvalidInput("referenced category, material or art does not exist")
	default:
		return fmt.Errorf("write product: %w", err)
	}
}

func ref(id, name *string) *domain.Ref {
	if id == nil {
		return nil
	}
	r := &domain.Ref{ID: *id}
	if name != nil {
		r.Name = *name
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
