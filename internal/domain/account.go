package domain

import (
	"time"
)

// Account is the consistency unit for a customer: identity, credentials,
// and the embedded cart and favorites collections. Version increases on
// every write of the collections and guards against lost updates.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	Cart         Cart       `json:"-"`
	Favorites    Favorites  `json:"-"`
	Version      int        `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the account has the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AccountSummary is the dashboard projection of an account.
type AccountSummary struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CartItemCount  int        `json:"cart_item_count"`
	FavoritesCount int        `json:"favorites_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Summary projects the account for admin listings.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:             a.ID,
		Email:          a.Email,
		Name:           a.Name,
		Role:           a.Role,
		LastLoginAt:    a.LastLoginAt,
		CartItemCount:  len(a.Cart),
		FavoritesCount: len(a.Favorites),
		CreatedAt:      a.CreatedAt,
	}
}

// AuthToken is returned by register and login.
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
