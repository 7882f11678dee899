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

const accountColumns = `id, email, password_hash, name, role, last_login_at, cart, favorites, version, created_at, updated_at`

// AccountRepository implements repository.AccountRepository using PostgreSQL.
// Cart and favorites are stored as JSONB columns of the account row.
type AccountRepository struct {
	db database.DBTX
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(db database.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with empty collections at version 1.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, name, role, cart, favorites, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '[]'::jsonb, '[]'::jsonb, 1, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.Email,
		a.PasswordHash,
		a.Name,
		a.Role,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("account", "email", a.Email)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	a.Cart = domain.Cart{}
	a.Favorites = domain.Favorites{}
	a.Version = 1
	return nil
}

// GetByID retrieves an account by its id.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(ctx, "GetAccount", query, id)
}

// GetByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.scanAccount(ctx, "GetAccountByEmail", query, email)
}

// UpdateProfile writes the account's name, email and password hash.
func (r *AccountRepository) UpdateProfile(ctx context.Context, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE accounts
		SET email = $1, password_hash = $2, name = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, a.Email, a.PasswordHash, a.Name, a.UpdatedAt, a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("account", "email", a.Email)
		}
		return fmt.Errorf("update account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", a.ID)
	}
	return nil
}

// UpdateLastLogin stamps the last successful login time.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	ct, err := r.db.Exec(ctx, `UPDATE accounts SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}
	return nil
}

// UpdateRole changes the account's role.
func (r *AccountRepository) UpdateRole(ctx context.Context, id, role string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE accounts SET role = $1, updated_at = $2 WHERE id = $3`,
		role, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update account role: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}
	return nil
}

// SaveCollections writes the cart and favorites when the stored version
// still matches a.Version. On success a.Version is incremented.
func (r *AccountRepository) SaveCollections(ctx context.Context, a *domain.Account) (err error) {
	cartJSON, err := json.Marshal(nonNilCart(a.Cart))
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	favJSON, err := json.Marshal(nonNilFavorites(a.Favorites))
	if err != nil {
		return fmt.Errorf("marshal favorites: %w", err)
	}

	query := `
		UPDATE accounts
		SET cart = $1, favorites = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`

	ctx, end := database.TraceQuery(ctx, "SaveAccountCollections", query)
	defer func() { end(err) }()

	now := time.Now().UTC()
	ct, err := r.db.Exec(ctx, query, cartJSON, favJSON, now, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("save account collections: %w", err)
	}

	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check account exists: %w", err)
		}
		if !exists {
			return apperrors.NotFound("account", a.ID)
		}
		return apperrors.Conflict("account was modified concurrently")
	}

	a.Version++
	a.UpdatedAt = now
	return nil
}

// Delete removes the account. Its cart and favorites live in the same row
// and projects cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("account", id)
	}
	return nil
}

// List returns accounts newest first along with the total count.
func (r *AccountRepository) List(ctx context.Context, offset, limit int) ([]domain.Account, int, error) {
	query := `
		SELECT ` + accountColumns + `, count(*) OVER() AS total_count
		FROM accounts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var (
		accounts   []domain.Account
		totalCount int
	)
	for rows.Next() {
		var a domain.Account
		if err := scanAccountRow(rows, &a, &totalCount); err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate account rows: %w", err)
	}

	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, totalCount, nil
}

// Count returns the number of accounts and admins.
func (r *AccountRepository) Count(ctx context.Context) (int, int, error) {
	var total, admins int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE role = 'admin') FROM accounts`,
	).Scan(&total, &admins)
	if err != nil {
		return 0, 0, fmt.Errorf("count accounts: %w", err)
	}
	return total, admins, nil
}

func (r *AccountRepository) scanAccount(ctx context.Context, op, query, key string) (a *domain.Account, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	var acc domain.Account
	if err := scanAccountRow(r.db.QueryRow(ctx, query, key), &acc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("account", key)
		}
		return nil, err
	}
	return &acc, nil
}

// scanAccountRow scans the account columns, followed by any extra
// destinations, and decodes the JSONB collections.
func scanAccountRow(row pgx.Row, a *domain.Account, extra ...any) error {
	var cartJSON, favJSON []byte
	dest := []any{
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Name,
		&a.Role,
		&a.LastLoginAt,
		&cartJSON,
		&favJSON,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("scan account: %w", err)
	}

	a.Cart = domain.Cart{}
	if len(cartJSON) > 0 {
		if err := json.Unmarshal(cartJSON, &a.Cart); err != nil {
			return fmt.Errorf("unmarshal cart: %w", err)
		}
	}
	a.Favorites = domain.Favorites{}
	if len(favJSON) > 0 {
		if err := json.Unmarshal(favJSON, &a.Favorites); err != nil {
			return fmt.Errorf("unmarshal favorites: %w", err)
		}
	}
	return nil
}

func nonNilCart(c domain.Cart) domain.Cart {
	if c == nil {
		return domain.Cart{}
	}
	return c
}

func nonNilFavorites(f domain.Favorites) domain.Favorites {
	if f == nil {
		return domain.Favorites{}
	}
	return f
}
