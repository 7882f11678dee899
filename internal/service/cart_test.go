package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/domain"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

func newTestCartService(accounts *mockAccountRepository, products *mockProductRepository, pub *recordingPublisher) *CartService {
	return NewCartService(accounts, products, cache.Nop{}, pub, newTestLogger())
}

func sareeProduct() *domain.Product {
	return &domain.Product{
		ID:       "p1",
		Name:     "Silk Saree",
		Price:    250000,
		Currency: "INR",
		Sizes:    []string{"M", "L"},
		Colors:   []string{"red"},
		IsActive: true,
	}
}

func TestCartService_Add_SameTripleMerges(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	pub := &recordingPublisher{}
	svc := newTestCartService(accounts, products, pub)
	ctx := context.Background()

	account := newTestAccount("acc-1")
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	accounts.On("SaveCollections", ctx, account).Return(nil)
	products.On("GetByID", ctx, "p1").Return(sareeProduct(), nil)

	_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 2, Size: strPtr("M")})
	require.NoError(t, err)
	item, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 3, Size: strPtr("M")})
	require.NoError(t, err)

	require.Len(t, account.Cart, 1)
	assert.Equal(t, 5, account.Cart[0].Quantity)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, account.Cart[0].ID, item.ID)
	assert.Equal(t, []string{"cart.updated", "cart.updated"}, pub.recorded())
}

func TestCartService_Add_LabelsMatchExactly(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(accounts, products, &recordingPublisher{})
	ctx := context.Background()

	stole := &domain.Product{ID: "p2", Name: "Linen Stole", Price: 90000, Currency: "INR", IsActive: true}
	account := newTestAccount("acc-1")
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	accounts.On("SaveCollections", ctx, account).Return(nil)
	products.On("GetByID", ctx, "p2").Return(stole, nil)

	for _, size := range []*string{nil, strPtr(""), strPtr(" M"), strPtr("M"), nil, strPtr("")} {
		_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p2", Quantity: 1, Size: size})
		require.NoError(t, err)
	}

	require.Len(t, account.Cart, 4)
	assert.Nil(t, account.Cart[0].Size)
	assert.Equal(t, 2, account.Cart[0].Quantity)
	assert.Equal(t, "", *account.Cart[1].Size)
	assert.Equal(t, 2, account.Cart[1].Quantity)
	assert.Equal(t, " M", *account.Cart[2].Size)
	assert.Equal(t, "M", *account.Cart[3].Size)
	assert.Equal(t, 1, account.Cart[3].Quantity)
}

func TestCartService_Add_MergedQuantityIsCapped(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(accounts, products, &recordingPublisher{})
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Cart = domain.Cart{{ID: "item-1", ProductID: "p1", Quantity: 900, Size: strPtr("M")}}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	products.On("GetByID", ctx, "p1").Return(sareeProduct(), nil)

	_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 101, Size: strPtr("M")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 900, account.Cart[0].Quantity)
	accounts.AssertNotCalled(t, "SaveCollections", mock.Anything, mock.Anything)

	accounts.On("SaveCollections", ctx, account).Return(nil)
	item, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 100, Size: strPtr("M")})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxLineQuantity, item.Quantity)
}

func TestCartService_Add_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("zero quantity", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		products := new(mockProductRepository)
		svc := newTestCartService(accounts, products, &recordingPublisher{})

		_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 0})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("quantity over line cap", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		products := new(mockProductRepository)
		svc := newTestCartService(accounts, products, &recordingPublisher{})

		_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: domain.MaxLineQuantity + 1})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown product", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		products := new(mockProductRepository)
		svc := newTestCartService(accounts, products, &recordingPublisher{})
		products.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("product", "missing"))

		_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "missing", Quantity: 1})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		accounts.AssertNotCalled(t, "SaveCollections", mock.Anything, mock.Anything)
	})

	t.Run("size not offered", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		products := new(mockProductRepository)
		svc := newTestCartService(accounts, products, &recordingPublisher{})
		products.On("GetByID", ctx, "p1").Return(sareeProduct(), nil)

		_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 1, Size: strPtr("XXL")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestCartService_Add_RetriesOnVersionConflict(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(accounts, products, &recordingPublisher{})
	ctx := context.Background()

	stale := newTestAccount("acc-1")
	fresh := newTestAccount("acc-1")
	fresh.Version = 2
	fresh.Cart = domain.Cart{{ID: "other", ProductID: "p2", Quantity: 1}}

	accounts.On("GetByID", ctx, "acc-1").Return(stale, nil).Once()
	accounts.On("GetByID", ctx, "acc-1").Return(fresh, nil).Once()
	accounts.On("SaveCollections", ctx, stale).Return(apperrors.Conflict("version mismatch")).Once()
	accounts.On("SaveCollections", ctx, fresh).Return(nil).Once()
	products.On("GetByID", ctx, "p1").Return(sareeProduct(), nil)

	_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	// The concurrent write is preserved.
	require.Len(t, fresh.Cart, 2)
	assert.Equal(t, "p2", fresh.Cart[0].ProductID)
	assert.Equal(t, "p1", fresh.Cart[1].ProductID)
	accounts.AssertExpectations(t)
}

func TestCartService_Add_GivesUpAfterRepeatedConflicts(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	pub := &recordingPublisher{}
	svc := newTestCartService(accounts, products, pub)
	ctx := context.Background()

	for range maxSaveAttempts {
		accounts.On("GetByID", ctx, "acc-1").Return(newTestAccount("acc-1"), nil).Once()
	}
	accounts.On("SaveCollections", ctx, mock.Anything).Return(apperrors.Conflict("version mismatch"))
	products.On("GetByID", ctx, "p1").Return(sareeProduct(), nil)

	_, err := svc.Add(ctx, "acc-1", AddToCartInput{ProductID: "p1", Quantity: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	accounts.AssertNumberOfCalls(t, "SaveCollections", maxSaveAttempts)
	assert.Empty(t, pub.recorded())
}

func TestCartService_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces quantity", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		svc := newTestCartService(accounts, new(mockProductRepository), &recordingPublisher{})
		account := newTestAccount("acc-1")
		account.Cart = domain.Cart{{ID: "item-1", ProductID: "p1", Quantity: 2}}
		accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
		accounts.On("SaveCollections", ctx, account).Return(nil)

		item, err := svc.UpdateQuantity(ctx, "acc-1", "item-1", 7)
		require.NoError(t, err)
		assert.Equal(t, 7, item.Quantity)
		assert.Equal(t, 7, account.Cart[0].Quantity)
	})

	t.Run("quantity below one", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		svc := newTestCartService(accounts, new(mockProductRepository), &recordingPublisher{})

		_, err := svc.UpdateQuantity(ctx, "acc-1", "item-1", 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("quantity over line cap", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		svc := newTestCartService(accounts, new(mockProductRepository), &recordingPublisher{})

		_, err := svc.UpdateQuantity(ctx, "acc-1", "item-1", domain.MaxLineQuantity+1)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown item", func(t *testing.T) {
		accounts := new(mockAccountRepository)
		svc := newTestCartService(accounts, new(mockProductRepository), &recordingPublisher{})
		accounts.On("GetByID", ctx, "acc-1").Return(newTestAccount("acc-1"), nil)

		_, err := svc.UpdateQuantity(ctx, "acc-1", "nope", 2)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		accounts.AssertNotCalled(t, "SaveCollections", mock.Anything, mock.Anything)
	})
}

func TestCartService_Remove_UnknownItemLeavesCartUnchanged(t *testing.T) {
	accounts := new(mockAccountRepository)
	pub := &recordingPublisher{}
	svc := newTestCartService(accounts, new(mockProductRepository), pub)
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Cart = domain.Cart{{ID: "item-1", ProductID: "p1", Quantity: 2}}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)

	err := svc.Remove(ctx, "acc-1", "item-9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Len(t, account.Cart, 1)
	accounts.AssertNotCalled(t, "SaveCollections", mock.Anything, mock.Anything)
	assert.Empty(t, pub.recorded())
}

func TestCartService_Remove(t *testing.T) {
	accounts := new(mockAccountRepository)
	svc := newTestCartService(accounts, new(mockProductRepository), &recordingPublisher{})
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Cart = domain.Cart{
		{ID: "item-1", ProductID: "p1", Quantity: 2},
		{ID: "item-2", ProductID: "p2", Quantity: 1},
	}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	accounts.On("SaveCollections", ctx, account).Return(nil)

	require.NoError(t, svc.Remove(ctx, "acc-1", "item-1"))
	require.Len(t, account.Cart, 1)
	assert.Equal(t, "item-2", account.Cart[0].ID)
}

func TestCartService_Clear(t *testing.T) {
	accounts := new(mockAccountRepository)
	svc := newTestCartService(accounts, new(mockProductRepository), &recordingPublisher{})
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Cart = domain.Cart{{ID: "item-1", ProductID: "p1", Quantity: 2}}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	accounts.On("SaveCollections", ctx, account).Return(nil)

	require.NoError(t, svc.Clear(ctx, "acc-1"))
	assert.Empty(t, account.Cart)
}

func TestCartService_List_ResolvesProducts(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(accounts, products, &recordingPublisher{})
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Cart = domain.Cart{
		{ID: "item-1", ProductID: "p1", Quantity: 2},
		{ID: "item-2", ProductID: "gone", Quantity: 1},
		{ID: "item-3", ProductID: "p1", Quantity: 1, Color: strPtr("red")},
	}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	products.On("GetSummaries", ctx, []string{"p1", "gone"}).Return(map[string]domain.ProductSummary{
		"p1": {
			ID:       "p1",
			Name:     "Silk Saree",
			Price:    1000,
			Currency: "INR",
			Category: &domain.Ref{ID: "c1", Name: "Sarees"},
		},
	}, nil)

	view, err := svc.List(ctx, "acc-1")
	require.NoError(t, err)

	require.Len(t, view.Items, 3)
	assert.Equal(t, "item-1", view.Items[0].ID)
	require.NotNil(t, view.Items[0].Product)
	assert.Equal(t, "Sarees", view.Items[0].Product.Category.Name)
	assert.Nil(t, view.Items[1].Product)
	assert.Equal(t, 4, view.TotalQuantity)
	assert.EqualValues(t, 3000, view.Subtotal)
	assert.Equal(t, "INR", view.Currency)
}
