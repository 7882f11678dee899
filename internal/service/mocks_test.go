package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/search"
)

// --- Mock Account Repository ---

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) UpdateProfile(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *mockAccountRepository) UpdateRole(ctx context.Context, id, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *mockAccountRepository) SaveCollections(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccountRepository) List(ctx context.Context, offset, limit int) ([]domain.Account, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Account), args.Int(1), args.Error(2)
}

func (m *mockAccountRepository) Count(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) GetSummaries(ctx context.Context, ids []string) (map[string]domain.ProductSummary, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.ProductSummary), args.Error(1)
}

func (m *mockProductRepository) CountByFacet(ctx context.Context, kind domain.FacetKind, facetID string) (int, error) {
	args := m.Called(ctx, kind, facetID)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepository) Count(ctx context.Context) (int, int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1), args.Error(2)
}

// --- Mock Facet Repository ---

type mockFacetRepository struct {
	mock.Mock
	kind domain.FacetKind
}

func (m *mockFacetRepository) Kind() domain.FacetKind { return m.kind }

func (m *mockFacetRepository) Create(ctx context.Context, facet *domain.Facet) error {
	args := m.Called(ctx, facet)
	return args.Error(0)
}

func (m *mockFacetRepository) GetByID(ctx context.Context, id string) (*domain.Facet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Facet), args.Error(1)
}

func (m *mockFacetRepository) List(ctx context.Context, sort repository.SortOrder) ([]domain.Facet, error) {
	args := m.Called(ctx, sort)
	return args.Get(0).([]domain.Facet), args.Error(1)
}

func (m *mockFacetRepository) Update(ctx context.Context, facet *domain.Facet) error {
	args := m.Called(ctx, facet)
	return args.Error(0)
}

func (m *mockFacetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockFacetRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Mock Search Index ---

type mockSearchIndex struct {
	mock.Mock
}

func (m *mockSearchIndex) Index(ctx context.Context, doc search.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockSearchIndex) BulkIndex(ctx context.Context, docs []search.Document) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *mockSearchIndex) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSearchIndex) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

// --- Mock Project Repository ---

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectRepository) GetByID(ctx context.Context, accountID, id string) (*domain.Project, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectRepository) ListByAccount(ctx context.Context, accountID string, offset, limit int) ([]domain.Project, int, error) {
	args := m.Called(ctx, accountID, offset, limit)
	return args.Get(0).([]domain.Project), args.Int(1), args.Error(2)
}

func (m *mockProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *mockProjectRepository) SetThumbnail(ctx context.Context, accountID, id, url string) error {
	args := m.Called(ctx, accountID, id, url)
	return args.Error(0)
}

func (m *mockProjectRepository) Delete(ctx context.Context, accountID, id string) error {
	args := m.Called(ctx, accountID, id)
	return args.Error(0)
}

func (m *mockProjectRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- Recording Publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
	return nil
}

func (p *recordingPublisher) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPublisher) AccountRegistered(context.Context, *domain.Account) error {
	return p.record("account.registered")
}

func (p *recordingPublisher) AccountDeleted(context.Context, string) error {
	return p.record("account.deleted")
}

func (p *recordingPublisher) CartUpdated(context.Context, string, domain.Cart) error {
	return p.record("cart.updated")
}

func (p *recordingPublisher) FavoritesUpdated(_ context.Context, _, _, action string) error {
	return p.record("favorites." + action)
}

func (p *recordingPublisher) ProductChanged(_ context.Context, action string, _ *domain.Product) error {
	return p.record("product." + action)
}

func (p *recordingPublisher) ProductDeleted(context.Context, string) error {
	return p.record("product.deleted")
}

func (p *recordingPublisher) FacetChanged(_ context.Context, kind domain.FacetKind, action, _ string) error {
	return p.record(string(kind) + "." + action)
}

func (p *recordingPublisher) ProjectChanged(_ context.Context, action string, _ *domain.Project) error {
	return p.record("project." + action)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strPtr(s string) *string { return &s }

func newTestAccount(id string) *domain.Account {
	return &domain.Account{
		ID:        id,
		Email:     id + "@example.com",
		Name:      "Test",
		Role:      domain.RoleUser,
		Cart:      domain.Cart{},
		Favorites: domain.Favorites{},
		Version:   1,
	}
}
