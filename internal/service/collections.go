package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// maxSaveAttempts bounds the optimistic retries of a cart or favorites
// write that lost a version race.
const maxSaveAttempts = 3

// errUnchanged tells collectionWriter.mutate that the mutation was a no-op
// and nothing needs to be written.
var errUnchanged = errors.New("collections unchanged")

// collectionWriter runs read-modify-write cycles on an account's cart and
// favorites with compare-and-swap on the account version.
type collectionWriter struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// mutate loads the account, applies fn and saves the collections. When
// another request saved first, the whole cycle is retried on fresh data.
func (w collectionWriter) mutate(ctx context.Context, accountID string, fn func(*domain.Account) error) (*domain.Account, error) {
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		account, err := w.accounts.GetByID(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}

		if err := fn(account); err != nil {
			if errors.Is(err, errUnchanged) {
				return account, nil
			}
			return nil, err
		}

		err = w.accounts.SaveCollections(ctx, account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("save account collections: %w", err)
		}

		w.logger.WarnContext(ctx, "account modified concurrently, retrying",
			slog.String("account_id", accountID),
			slog.Int("attempt", attempt),
		)
	}
	return nil, apperrors.Conflict("account was modified concurrently, please retry")
}

// productResolver resolves product ids to display summaries, reading
// through the product cache.
type productResolver struct {
	products repository.ProductRepository
	cache    cache.ProductCache
	logger   *slog.Logger
}

func (r productResolver) summaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, error) {
	if len(ids) == 0 {
		return map[string]domain.ProductSummary{}, nil
	}

	found, missing, err := r.cache.GetSummaries(ctx, ids)
	if err != nil {
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.String("error", err.Error()),
		)
		found, missing = map[string]domain.ProductSummary{}, ids
	}
	if len(missing) == 0 {
		return found, nil
	}

	fetched, err := r.products.GetSummaries(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	for id, s := range fetched {
		found[id] = s
	}

	if err := r.cache.SetSummaries(ctx, fetched); err != nil {
		r.logger.WarnContext(ctx, "product cache write failed",
			slog.String("error", err.Error()),
		)
	}
	return found, nil
}
