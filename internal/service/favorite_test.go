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

func newTestFavoriteService(accounts *mockAccountRepository, products *mockProductRepository, pub *recordingPublisher) *FavoriteService {
	return NewFavoriteService(accounts, products, cache.Nop{}, pub, newTestLogger())
}

func TestFavoriteService_Add_Twice(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	pub := &recordingPublisher{}
	svc := newTestFavoriteService(accounts, products, pub)
	ctx := context.Background()

	account := newTestAccount("acc-1")
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	accounts.On("SaveCollections", ctx, account).Return(nil).Once()
	products.On("Exists", ctx, "p1").Return(true, nil)

	require.NoError(t, svc.Add(ctx, "acc-1", "p1"))
	require.NoError(t, svc.Add(ctx, "acc-1", "p1"))

	assert.Equal(t, domain.Favorites{"p1"}, account.Favorites)
	accounts.AssertNumberOfCalls(t, "SaveCollections", 1)
	assert.Equal(t, []string{"favorites.added"}, pub.recorded())
}

func TestFavoriteService_Add_UnknownProduct(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	svc := newTestFavoriteService(accounts, products, &recordingPublisher{})
	ctx := context.Background()

	products.On("Exists", ctx, "missing").Return(false, nil)

	err := svc.Add(ctx, "acc-1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	accounts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestFavoriteService_Remove_AbsentIsNoop(t *testing.T) {
	accounts := new(mockAccountRepository)
	pub := &recordingPublisher{}
	svc := newTestFavoriteService(accounts, new(mockProductRepository), pub)
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Favorites = domain.Favorites{"p2"}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)

	require.NoError(t, svc.Remove(ctx, "acc-1", "p1"))
	assert.Equal(t, domain.Favorites{"p2"}, account.Favorites)
	accounts.AssertNotCalled(t, "SaveCollections", mock.Anything, mock.Anything)
	assert.Empty(t, pub.recorded())
}

func TestFavoriteService_Remove(t *testing.T) {
	accounts := new(mockAccountRepository)
	pub := &recordingPublisher{}
	svc := newTestFavoriteService(accounts, new(mockProductRepository), pub)
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Favorites = domain.Favorites{"p1", "p2"}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	accounts.On("SaveCollections", ctx, account).Return(nil)

	require.NoError(t, svc.Remove(ctx, "acc-1", "p1"))
	assert.Equal(t, domain.Favorites{"p2"}, account.Favorites)
	assert.Equal(t, []string{"favorites.removed"}, pub.recorded())
}

func TestFavoriteService_ContainsAndList(t *testing.T) {
	accounts := new(mockAccountRepository)
	products := new(mockProductRepository)
	svc := newTestFavoriteService(accounts, products, &recordingPublisher{})
	ctx := context.Background()

	account := newTestAccount("acc-1")
	account.Favorites = domain.Favorites{"p2", "p1"}
	accounts.On("GetByID", ctx, "acc-1").Return(account, nil)
	products.On("GetSummaries", ctx, []string{"p2", "p1"}).Return(map[string]domain.ProductSummary{
		"p1": {ID: "p1", Name: "Cotton Kurta"},
	}, nil)

	ok, err := svc.Contains(ctx, "acc-1", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	lines, err := svc.List(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "p2", lines[0].ProductID)
	assert.Nil(t, lines[0].Product)
	require.NotNil(t, lines[1].Product)
	assert.Equal(t, "Cotton Kurta", lines[1].Product.Name)
}
