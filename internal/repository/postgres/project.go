package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/pkg/database"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

const projectColumns = `id, account_id, name, product_id, design, thumbnail_url, created_at, updated_at`

// ProjectRepository implements repository.ProjectRepository using PostgreSQL.
// Every lookup is scoped to the owning account.
type ProjectRepository struct {
	db database.DBTX
}

// NewProjectRepository creates a new PostgreSQL-backed project repository.
func NewProjectRepository(db database.DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	designJSON, err := json.Marshal(p.Design)
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.Exec(ctx, query,
		p.ID, p.AccountID, p.Name, p.ProductID, designJSON, p.ThumbnailURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.InvalidInput("referenced product does not exist")
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID retrieves a project owned by accountID.
func (r *ProjectRepository) GetByID(ctx context.Context, accountID, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND account_id = $2`

	var p domain.Project
	if err := scanProjectRow(r.db.QueryRow(ctx, query, id, accountID), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("project", id)
		}
		return nil, err
	}
	return &p, nil
}

// ListByAccount returns a page of the account's projects, most recently
// updated first.
func (r *ProjectRepository) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]domain.Project, int, error) {
	query := `
		SELECT ` + projectColumns + `, count(*) OVER() AS total_count
		FROM projects
		WHERE account_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var (
		projects   = []domain.Project{}
		totalCount int
	)
	for rows.Next() {
		var p domain.Project
		if err := scanProjectRow(rows, &p, &totalCount); err != nil {
			return nil, 0, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate project rows: %w", err)
	}
	return projects, totalCount, nil
}

// Update writes the name, product reference and design.
func (r *ProjectRepository) Update(ctx context.Context, p *domain.Project) error {
	designJSON, err := json.Marshal(p.Design)
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE projects
		SET name = $1, product_id = $2, design = $3, updated_at = $4
		WHERE id = $5 AND account_id = $6`

	ct, err := r.db.Exec(ctx, query, p.Name, p.ProductID, designJSON, p.UpdatedAt, p.ID, p.AccountID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.InvalidInput("referenced product does not exist")
		}
		return fmt.Errorf("update project: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("project", p.ID)
	}
	return nil
}

// SetThumbnail records the rendered thumbnail URL.
func (r *ProjectRepository) SetThumbnail(ctx context.Context, accountID, id, url string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE projects SET thumbnail_url = $1, updated_at = $2 WHERE id = $3 AND account_id = $4`,
		url, time.Now().UTC(), id, accountID,
	)
	if err != nil {
		return fmt.Errorf("set project thumbnail: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("project", id)
	}
	return nil
}

// Delete removes a project owned by accountID.
func (r *ProjectRepository) Delete(ctx context.Context, accountID, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("project", id)
	}
	return nil
}

// Count returns the number of projects across all accounts.
func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

func scanProjectRow(row pgx.Row, p *domain.Project, extra ...any) error {
	var designJSON []byte
	dest := []any{
		&p.ID,
		&p.AccountID,
		&p.Name,
		&p.ProductID,
		&designJSON,
		&p.ThumbnailURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan project: %w", err)
	}
	if err := json.Unmarshal(designJSON, &p.Design); err != nil {
		return fmt.Errorf("unmarshal design: %w", err)
	}
	return nil
}
