package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// CartService implements the cart operations on the account aggregate.
type CartService struct {
	writer   collectionWriter
	resolver productResolver
	products repository.ProductRepository
	events   event.Publisher
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	productCache cache.ProductCache,
	events event.Publisher,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		writer:   collectionWriter{accounts: accounts, logger: logger},
		resolver: productResolver{products: products, cache: productCache, logger: logger},
		products: products,
		events:   events,
		logger:   logger,
	}
}

// AddToCartInput holds the parameters for adding a product to the cart.
type AddToCartInput struct {
	ProductID string
	Quantity  int
	Size      *string
	Color     *string
}

// Add puts a product in the cart. A line with the same product, size and
// color absorbs the quantity; otherwise a new line is appended. Labels are
// matched exactly and a nil label only matches nil.
func (s *CartService) Add(ctx context.Context, accountID string, input AddToCartInput) (*domain.CartItem, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if input.Quantity > domain.MaxLineQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be at most %d", domain.MaxLineQuantity))
	}
	size, color := input.Size, input.Color

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for cart: %w", err)
	}
	if size != nil && !product.AcceptsSize(*size) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("size %q is not offered for this product", *size))
	}
	if color != nil && !product.AcceptsColor(*color) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("color %q is not offered for this product", *color))
	}

	var added domain.CartItem
	account, err := s.writer.mutate(ctx, accountID, func(a *domain.Account) error {
		if idx := a.Cart.FindMatch(product.ID, size, color); idx >= 0 &&
			a.Cart[idx].Quantity+input.Quantity > domain.MaxLineQuantity {
			return apperrors.InvalidInput(fmt.Sprintf("cart line would exceed %d items", domain.MaxLineQuantity))
		}
		a.Cart, added, _ = a.Cart.Merge(domain.CartItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			Quantity:  input.Quantity,
			Size:      size,
			Color:     color,
			AddedAt:   time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, account)
	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("account_id", accountID),
		slog.String("product_id", product.ID),
		slog.String("item_id", added.ID),
		slog.Int("quantity", added.Quantity),
	)

	return &added, nil
}

// UpdateQuantity replaces the quantity of one line.
func (s *CartService) UpdateQuantity(ctx context.Context, accountID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if quantity > domain.MaxLineQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be at most %d", domain.MaxLineQuantity))
	}

	var updated domain.CartItem
	account, err := s.writer.mutate(ctx, accountID, func(a *domain.Account) error {
		idx := a.Cart.FindItem(itemID)
		if idx < 0 {
			return apperrors.NotFound("cart item", itemID)
		}
		a.Cart[idx].Quantity = quantity
		updated = a.Cart[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, account)
	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("account_id", accountID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return &updated, nil
}

// Remove drops one line. An unknown item id leaves the cart untouched.
func (s *CartService) Remove(ctx context.Context, accountID, itemID string) error {
	account, err := s.writer.mutate(ctx, accountID, func(a *domain.Account) error {
		cart, ok := a.Cart.RemoveItem(itemID)
		if !ok {
			return apperrors.NotFound("cart item", itemID)
		}
		a.Cart = cart
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, account)
	s.logger.InfoContext(ctx, "cart item removed",
		slog.String("account_id", accountID),
		slog.String("item_id", itemID),
	)
	return nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, accountID string) error {
	account, err := s.writer.mutate(ctx, accountID, func(a *domain.Account) error {
		a.Cart = domain.Cart{}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, account)
	s.logger.InfoContext(ctx, "cart cleared", slog.String("account_id", accountID))
	return nil
}

// List returns the cart lines in insertion order with products resolved.
// Lines whose product was deleted keep a nil product and do not count
// towards the subtotal.
func (s *CartService) List(ctx context.Context, accountID string) (*domain.CartView, error) {
	account, err := s.writer.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account for cart: %w", err)
	}

	summaries, err := s.resolver.summaries(ctx, account.Cart.ProductIDs())
	if err != nil {
		return nil, err
	}

	view := &domain.CartView{
		Items:         make([]domain.CartLine, 0, len(account.Cart)),
		TotalQuantity: account.Cart.TotalQuantity(),
	}
	for _, item := range account.Cart {
		line := domain.CartLine{CartItem: item}
		if p, ok := summaries[item.ProductID]; ok {
			line.Product = &p
			view.Subtotal += p.Price * int64(item.Quantity)
			if view.Currency == "" {
				view.Currency = p.Currency
			}
		}
		view.Items = append(view.Items, line)
	}
	return view, nil
}

func (s *CartService) publish(ctx context.Context, account *domain.Account) {
	if err := s.events.CartUpdated(ctx, account.ID, account.Cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}
}
