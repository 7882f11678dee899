package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// FavoriteService implements the favorites set on the account aggregate.
type FavoriteService struct {
	writer   collectionWriter
	resolver productResolver
	products repository.ProductRepository
	events   event.Publisher
	logger   *slog.Logger
}

// NewFavoriteService creates a new favorites service.
func NewFavoriteService(
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	productCache cache.ProductCache,
	events event.Publisher,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{
		writer:   collectionWriter{accounts: accounts, logger: logger},
		resolver: productResolver{products: products, cache: productCache, logger: logger},
		products: products,
		events:   events,
		logger:   logger,
	}
}

// Add marks a product as favorite. Adding an existing favorite is a no-op.
func (s *FavoriteService) Add(ctx context.Context, accountID, productID string) error {
	if productID == "" {
		return apperrors.InvalidInput("product id is required")
	}

	exists, err := s.products.Exists(ctx, productID)
	if err != nil {
		return fmt.Errorf("check product for favorites: %w", err)
	}
	if !exists {
		return apperrors.NotFound("product", productID)
	}

	var changed bool
	_, err = s.writer.mutate(ctx, accountID, func(a *domain.Account) error {
		a.Favorites, changed = a.Favorites.Add(productID)
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.publish(ctx, accountID, productID, event.ActionAdded)
		s.logger.InfoContext(ctx, "favorite added",
			slog.String("account_id", accountID),
			slog.String("product_id", productID),
		)
	}
	return nil
}

// Remove unmarks a product. Removing a product that is not a favorite
// succeeds and leaves the set unchanged.
func (s *FavoriteService) Remove(ctx context.Context, accountID, productID string) error {
	var changed bool
	_, err := s.writer.mutate(ctx, accountID, func(a *domain.Account) error {
		a.Favorites, changed = a.Favorites.Remove(productID)
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.publish(ctx, accountID, productID, event.ActionRemoved)
		s.logger.InfoContext(ctx, "favorite removed",
			slog.String("account_id", accountID),
			slog.String("product_id", productID),
		)
	}
	return nil
}

// Contains reports whether productID is one of the account's favorites.
func (s *FavoriteService) Contains(ctx context.Context, accountID, productID string) (bool, error) {
	account, err := s.writer.accounts.GetByID(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("get account for favorites: %w", err)
	}
	return account.Favorites.Contains(productID), nil
}

// List returns the favorites in the order they were added, with products
// resolved the same way as cart lines.
func (s *FavoriteService) List(ctx context.Context, accountID string) ([]domain.FavoriteLine, error) {
	account, err := s.writer.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account for favorites: %w", err)
	}

	summaries, err := s.resolver.summaries(ctx, account.Favorites)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.FavoriteLine, 0, len(account.Favorites))
	for _, id := range account.Favorites {
		line := domain.FavoriteLine{ProductID: id}
		if p, ok := summaries[id]; ok {
			line.Product = &p
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *FavoriteService) publish(ctx context.Context, accountID, productID, action string) {
	if err := s.events.FavoritesUpdated(ctx, accountID, productID, action); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish favorites.updated event",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}
}
