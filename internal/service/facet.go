package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// CreateFacetInput holds the parameters for creating a category, material
// or art.
type CreateFacetInput struct {
	Name        string
	Slug        string
	Description string
	ImageURL    *string
}

// UpdateFacetInput holds the facet fields to change. Nil fields are left
// untouched; an empty image URL clears it.
type UpdateFacetInput struct {
	Name        *string
	Slug        *string
	Description *string
	ImageURL    *string
}

func (s *CatalogService) facetRepo(kind domain.FacetKind) (repository.FacetRepository, error) {
	repo, ok := s.facets[kind]
	if !ok {
		return nil, fmt.Errorf("no repository for %s", kind)
	}
	return repo, nil
}

// ListFacets returns every facet of kind in the requested order.
func (s *CatalogService) ListFacets(ctx context.Context, kind domain.FacetKind, sort repository.SortOrder) ([]domain.Facet, error) {
	repo, err := s.facetRepo(kind)
	if err != nil {
		return nil, err
	}
	facets, err := repo.List(ctx, sort)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table(), err)
	}
	return facets, nil
}

// GetFacet returns one facet.
func (s *CatalogService) GetFacet(ctx context.Context, kind domain.FacetKind, id string) (*domain.Facet, error) {
	repo, err := s.facetRepo(kind)
	if err != nil {
		return nil, err
	}
	facet, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return facet, nil
}

// CreateFacet validates and stores a new facet.
func (s *CatalogService) CreateFacet(ctx context.Context, kind domain.FacetKind, input CreateFacetInput) (*domain.Facet, error) {
	repo, err := s.facetRepo(kind)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s name is required", kind))
	}
	facetSlug, err := resolveSlug(input.Slug, name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	facet := &domain.Facet{
		ID:          uuid.New().String(),
		Kind:        kind,
		Name:        name,
		Slug:        facetSlug,
		Description: input.Description,
		ImageURL:    optionalID(input.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := repo.Create(ctx, facet); err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	s.publishFacet(ctx, kind, event.ActionCreated, facet.ID)
	s.logger.InfoContext(ctx, "facet created",
		slog.String("kind", string(kind)),
		slog.String("id", facet.ID),
	)

	return facet, nil
}

// UpdateFacet merges the given fields into the facet.
func (s *CatalogService) UpdateFacet(ctx context.Context, kind domain.FacetKind, id string, input UpdateFacetInput) (*domain.Facet, error) {
	repo, err := s.facetRepo(kind)
	if err != nil {
		return nil, err
	}

	facet, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get %s for update: %w", kind, err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("%s name must not be empty", kind))
		}
		facet.Name = name
	}
	if input.Slug != nil {
		facetSlug, err := resolveSlug(*input.Slug, facet.Name)
		if err != nil {
			return nil, err
		}
		facet.Slug = facetSlug
	}
	if input.Description != nil {
		facet.Description = *input.Description
	}
	if input.ImageURL != nil {
		facet.ImageURL = optionalID(input.ImageURL)
	}

	if err := repo.Update(ctx, facet); err != nil {
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}

	// Product summaries embed facet names.
	s.invalidateAll(ctx)
	s.publishFacet(ctx, kind, event.ActionUpdated, facet.ID)
	s.logger.InfoContext(ctx, "facet updated",
		slog.String("kind", string(kind)),
		slog.String("id", facet.ID),
	)

	return facet, nil
}

// DeleteFacet removes a facet. Categories and arts referenced by products
// are refused with the number of referencing products; deleting a
// material clears it from its products.
func (s *CatalogService) DeleteFacet(ctx context.Context, kind domain.FacetKind, id string) error {
	repo, err := s.facetRepo(kind)
	if err != nil {
		return err
	}

	if _, err := repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get %s for delete: %w", kind, err)
	}

	if kind.Protected() {
		if err := s.checkDependents(ctx, kind, id); err != nil {
			return err
		}
	}

	if err := repo.Delete(ctx, id); err != nil {
		// A product was attached between the count and the delete.
		if isHasDependents(err) {
			if derr := s.checkDependents(ctx, kind, id); derr != nil {
				return derr
			}
		}
		return fmt.Errorf("delete %s: %w", kind, err)
	}

	s.invalidateAll(ctx)
	s.publishFacet(ctx, kind, event.ActionDeleted, id)
	s.logger.InfoContext(ctx, "facet deleted",
		slog.String("kind", string(kind)),
		slog.String("id", id),
	)
	return nil
}

// checkDependents returns a HasDependents error when products reference
// the facet.
func (s *CatalogService) checkDependents(ctx context.Context, kind domain.FacetKind, id string) error {
	count, err := s.products.CountByFacet(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("count %s dependents: %w", kind, err)
	}
	if count > 0 {
		return apperrors.HasDependents(string(kind), id, count)
	}
	return nil
}

func (s *CatalogService) invalidateAll(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to flush product cache",
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) publishFacet(ctx context.Context, kind domain.FacetKind, action, id string) {
	if err := s.events.FacetChanged(ctx, kind, action, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish facet event",
			slog.String("kind", string(kind)),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
}
