package http

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// In-memory repositories backing the router tests.

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]domain.Account
}

var _ repository.AccountRepository = (*memAccounts)(nil)

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]domain.Account)}
}

func cloneAccount(a domain.Account) domain.Account {
	a.Cart = append(domain.Cart(nil), a.Cart...)
	a.Favorites = append(domain.Favorites(nil), a.Favorites...)
	return a
}

func (m *memAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if strings.EqualFold(a.Email, account.Email) {
			return apperrors.AlreadyExists("account", "email", account.Email)
		}
	}
	if account.Version == 0 {
		account.Version = 1
	}
	m.byID[account.ID] = cloneAccount(*account)
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound("account", id)
	}
	c := cloneAccount(a)
	return &c, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if strings.EqualFold(a.Email, email) {
			c := cloneAccount(a)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("account", email)
}

func (m *memAccounts) UpdateProfile(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[account.ID]
	if !ok {
		return apperrors.NotFound("account", account.ID)
	}
	a.Name, a.Email, a.PasswordHash = account.Name, account.Email, account.PasswordHash
	m.byID[a.ID] = a
	return nil
}

func (m *memAccounts) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return apperrors.NotFound("account", id)
	}
	a.LastLoginAt = &at
	m.byID[id] = a
	return nil
}

func (m *memAccounts) UpdateRole(_ context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return apperrors.NotFound("account", id)
	}
	a.Role = role
	m.byID[id] = a
	return nil
}

func (m *memAccounts) SaveCollections(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[account.ID]
	if !ok {
		return apperrors.NotFound("account", account.ID)
	}
	if a.Version != account.Version {
		return apperrors.ErrConflict
	}
	account.Version++
	a.Cart, a.Favorites, a.Version = account.Cart, account.Favorites, account.Version
	m.byID[a.ID] = cloneAccount(a)
	return nil
}

func (m *memAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperrors.NotFound("account", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memAccounts) List(_ context.Context, offset, limit int) ([]domain.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]domain.Account, 0, len(m.byID))
	for _, a := range m.byID {
		all = append(all, cloneAccount(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, offset, limit), len(all), nil
}

func (m *memAccounts) Count(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admins := 0
	for _, a := range m.byID {
		if a.Role == domain.RoleAdmin {
			admins++
		}
	}
	return len(m.byID), admins, nil
}

type memProducts struct {
	mu   sync.Mutex
	byID map[string]domain.Product
}

var _ repository.ProductRepository = (*memProducts)(nil)

func newMemProducts() *memProducts {
	return &memProducts{byID: make(map[string]domain.Product)}
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Slug == p.Slug {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

func (m *memProducts) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product", slug)
}

func (m *memProducts) List(_ context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.byID {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f.Offset, f.Limit), len(out), nil
}

func (m *memProducts) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memProducts) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok, nil
}

func (m *memProducts) GetSummaries(_ context.Context, ids []string) (map[string]domain.ProductSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.ProductSummary, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out[id] = domain.ProductSummary{
				ID:       p.ID,
				Name:     p.Name,
				Slug:     p.Slug,
				Price:    p.Price,
				Currency: p.Currency,
				IsActive: p.IsActive,
			}
		}
	}
	return out, nil
}

func (m *memProducts) CountByFacet(_ context.Context, kind domain.FacetKind, facetID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.byID {
		var ref *string
		switch kind {
		case domain.FacetCategory:
			ref = p.CategoryID
		case domain.FacetMaterial:
			ref = p.MaterialID
		case domain.FacetArt:
			ref = p.ArtID
		}
		if ref != nil && *ref == facetID {
			n++
		}
	}
	return n, nil
}

func (m *memProducts) Count(_ context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := 0
	for _, p := range m.byID {
		if p.IsActive {
			active++
		}
	}
	return len(m.byID), active, nil
}

type memFacets struct {
	kind domain.FacetKind
	mu   sync.Mutex
	byID map[string]domain.Facet
}

var _ repository.FacetRepository = (*memFacets)(nil)

func newMemFacets(kind domain.FacetKind) *memFacets {
	return &memFacets{kind: kind, byID: make(map[string]domain.Facet)}
}

func (m *memFacets) Kind() domain.FacetKind { return m.kind }

func (m *memFacets) Create(_ context.Context, f *domain.Facet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[f.ID] = *f
	return nil
}

func (m *memFacets) GetByID(_ context.Context, id string) (*domain.Facet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound(string(m.kind), id)
	}
	return &f, nil
}

func (m *memFacets) List(_ context.Context, _ repository.SortOrder) ([]domain.Facet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Facet, 0, len(m.byID))
	for _, f := range m.byID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memFacets) Update(_ context.Context, f *domain.Facet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[f.ID]; !ok {
		return apperrors.NotFound(string(m.kind), f.ID)
	}
	m.byID[f.ID] = *f
	return nil
}

func (m *memFacets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperrors.NotFound(string(m.kind), id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memFacets) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

type memProjects struct {
	mu   sync.Mutex
	byID map[string]domain.Project
}

var _ repository.ProjectRepository = (*memProjects)(nil)

func newMemProjects() *memProjects {
	return &memProjects{byID: make(map[string]domain.Project)}
}

func (m *memProjects) Create(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = *p
	return nil
}

func (m *memProjects) GetByID(_ context.Context, accountID, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.AccountID != accountID {
		return nil, apperrors.NotFound("project", id)
	}
	return &p, nil
}

func (m *memProjects) ListByAccount(_ context.Context, accountID string, offset, limit int) ([]domain.Project, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for _, p := range m.byID {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return page(out, offset, limit), len(out), nil
}

func (m *memProjects) Update(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[p.ID]
	if !ok || existing.AccountID != p.AccountID {
		return apperrors.NotFound("project", p.ID)
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memProjects) SetThumbnail(_ context.Context, accountID, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.AccountID != accountID {
		return apperrors.NotFound("project", id)
	}
	p.ThumbnailURL = &url
	m.byID[id] = p
	return nil
}

func (m *memProjects) Delete(_ context.Context, accountID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.AccountID != accountID {
		return apperrors.NotFound("project", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memProjects) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
