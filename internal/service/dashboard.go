package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
)

// recentAccountsLimit is how many newest accounts the dashboard lists.
const recentAccountsLimit = 5

// DashboardService aggregates counts for the admin dashboard.
type DashboardService struct {
	accounts repository.AccountRepository
	products repository.ProductRepository
	facets   []repository.FacetRepository
	projects repository.ProjectRepository
	logger   *slog.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	accounts repository.AccountRepository,
	products repository.ProductRepository,
	facets []repository.FacetRepository,
	projects repository.ProjectRepository,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		accounts: accounts,
		products: products,
		facets:   facets,
		projects: projects,
		logger:   logger,
	}
}

// Stats returns entity counts and the newest accounts.
func (s *DashboardService) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	var err error

	if stats.Accounts, stats.Admins, err = s.accounts.Count(ctx); err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	if stats.Products, stats.ActiveProducts, err = s.products.Count(ctx); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	for _, repo := range s.facets {
		n, err := repo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", repo.Kind().Table(), err)
		}
		switch repo.Kind() {
		case domain.FacetCategory:
			stats.Categories = n
		case domain.FacetMaterial:
			stats.Materials = n
		case domain.FacetArt:
			stats.Arts = n
		}
	}
	if stats.Projects, err = s.projects.Count(ctx); err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	recent, _, err := s.accounts.List(ctx, 0, recentAccountsLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent accounts: %w", err)
	}
	stats.RecentAccounts = make([]domain.AccountSummary, 0, len(recent))
	for i := range recent {
		stats.RecentAccounts = append(stats.RecentAccounts, recent[i].Summary())
	}

	return &stats, nil
}
