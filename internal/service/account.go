package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nahankar/shatika/internal/auth"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/pagination"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// AccountService implements registration, login, profile management and
// the admin account views.
type AccountService struct {
	accounts   repository.AccountRepository
	jwtManager *auth.JWTManager
	events     event.Publisher
	adminEmail string
	hashCost   int
	logger     *slog.Logger
}

// NewAccountService creates a new account service. Registrations with
// adminEmail are granted the admin role.
func NewAccountService(
	accounts repository.AccountRepository,
	jwtManager *auth.JWTManager,
	events event.Publisher,
	adminEmail string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:   accounts,
		jwtManager: jwtManager,
		events:     events,
		adminEmail: normalizeEmail(adminEmail),
		hashCost:   bcryptCost,
		logger:     logger,
	}
}

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput holds the parameters for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the profile fields to change. Nil fields are
// left untouched.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

// Register creates an account and returns it with an access token. The
// first account ever registered, and the configured admin email, become
// admins.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.Account, *domain.AuthToken, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, apperrors.InvalidInput("name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	role := domain.RoleUser
	if s.adminEmail != "" && email == s.adminEmail {
		role = domain.RoleAdmin
	} else {
		total, _, err := s.accounts.Count(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("count accounts: %w", err)
		}
		if total == 0 {
			role = domain.RoleAdmin
		}
	}

	account, err := s.createAccount(ctx, email, name, input.Password, role)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, nil, err
	}

	if err := s.events.AccountRegistered(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.registered event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("role", account.Role),
	)

	return account, token, nil
}

// Login verifies the credentials, stamps the login time and returns an
// access token.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*domain.Account, *domain.AuthToken, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, fmt.Errorf("get account for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	now := time.Now().UTC()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to record last login",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	} else {
		account.LastLoginAt = &now
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "account logged in", slog.String("account_id", account.ID))

	return account, token, nil
}

// ResolveToken validates an access token and loads the account it names.
// The role is taken from the stored account, not the token, so role
// changes apply immediately.
func (s *AccountService) ResolveToken(ctx context.Context, token string) (*domain.Account, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("resolve token account: %w", err)
	}
	return account, nil
}

// Profile returns the account.
func (s *AccountService) Profile(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account profile: %w", err)
	}
	return account, nil
}

// UpdateProfile changes the name and email.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		account.Name = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		account.Email = email
	}

	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		return nil, fmt.Errorf("update account profile: %w", err)
	}

	s.logger.InfoContext(ctx, "account profile updated", slog.String("account_id", account.ID))

	return account, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	account.PasswordHash = string(hashed)
	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		return fmt.Errorf("update account password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("account_id", account.ID))

	return nil
}

// DeleteAccount removes the account along with its cart, favorites and
// projects.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.events.AccountDeleted(ctx, accountID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.deleted event",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account deleted", slog.String("account_id", accountID))

	return nil
}

// ListAccounts returns a page of account summaries for the dashboard.
func (s *AccountService) ListAccounts(ctx context.Context, page pagination.Params) ([]domain.AccountSummary, int, error) {
	accounts, total, err := s.accounts.List(ctx, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	summaries := make([]domain.AccountSummary, 0, len(accounts))
	for i := range accounts {
		summaries = append(summaries, accounts[i].Summary())
	}
	return summaries, total, nil
}

// GetAccount returns one account summary for the dashboard.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.AccountSummary, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	summary := account.Summary()
	return &summary, nil
}

// UpdateRole changes an account's role. Admins cannot demote themselves.
func (s *AccountService) UpdateRole(ctx context.Context, actorID, accountID, role string) (*domain.AccountSummary, error) {
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("role must be one of: %s", strings.Join(domain.ValidRoles(), ", ")))
	}
	if actorID == accountID && role != domain.RoleAdmin {
		return nil, apperrors.InvalidInput("admins cannot remove their own admin role")
	}

	if err := s.accounts.UpdateRole(ctx, accountID, role); err != nil {
		return nil, fmt.Errorf("update account role: %w", err)
	}

	s.logger.InfoContext(ctx, "account role updated",
		slog.String("account_id", accountID),
		slog.String("role", role),
		slog.String("actor_id", actorID),
	)

	return s.GetAccount(ctx, accountID)
}

// EnsureAdmin makes sure an admin account exists for email, creating it
// with password when missing and promoting it when it is a plain user.
// Does nothing when email is empty.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if account.IsAdmin() {
			return nil
		}
		if err := s.accounts.UpdateRole(ctx, account.ID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("promote bootstrap admin: %w", err)
		}
		s.logger.InfoContext(ctx, "bootstrap admin promoted", slog.String("account_id", account.ID))
		return nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}

	if err := validatePassword(password); err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}
	account, err = s.createAccount(ctx, email, "Administrator", password, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.logger.InfoContext(ctx, "bootstrap admin created", slog.String("account_id", account.ID))
	return nil
}

func (s *AccountService) createAccount(ctx context.Context, email, name, password, role string) (*domain.Account, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashed),
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *AccountService) issueToken(account *domain.Account) (*domain.AuthToken, error) {
	token, expiresAt, err := s.jwtManager.GenerateAccessToken(account.ID, account.Email, account.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &domain.AuthToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword checks the password meets the length requirement.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > 72 {
		return apperrors.InvalidInput("password must be at most 72 bytes")
	}
	return nil
}
