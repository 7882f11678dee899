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
	"github.com/nahankar/shatika/internal/render"
	"github.com/nahankar/shatika/internal/repository"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/pagination"
)

const thumbnailContentType = "image/png"

// ProjectService implements design-your-own projects. Every operation is
// scoped to the owning account.
type ProjectService struct {
	projects repository.ProjectRepository
	products repository.ProductRepository
	renderer render.Renderer
	media    *MediaService
	events   event.Publisher
	metrics  *Metrics
	logger   *slog.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	projects repository.ProjectRepository,
	products repository.ProductRepository,
	renderer render.Renderer,
	media *MediaService,
	events event.Publisher,
	metrics *Metrics,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projects: projects,
		products: products,
		renderer: renderer,
		media:    media,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateProjectInput holds the parameters for creating a project.
type CreateProjectInput struct {
	Name      string
	ProductID *string
	Design    domain.Design
}

// UpdateProjectInput holds the project fields to change. An empty product
// id clears the base product.
type UpdateProjectInput struct {
	Name      *string
	ProductID *string
	Design    *domain.Design
}

// Create validates the design and stores a new project.
func (s *ProjectService) Create(ctx context.Context, accountID string, input CreateProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("project name is required")
	}
	if err := input.Design.Validate(); err != nil {
		return nil, err
	}
	productID := optionalID(input.ProductID)
	if err := s.checkProduct(ctx, productID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Name:      name,
		ProductID: productID,
		Design:    input.Design,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.publish(ctx, event.ActionCreated, project)
	s.logger.InfoContext(ctx, "project created",
		slog.String("project_id", project.ID),
		slog.String("account_id", accountID),
	)
	return project, nil
}

// Get returns one of the account's projects.
func (s *ProjectService) Get(ctx context.Context, accountID, id string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, accountID, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// List returns a page of the account's projects.
func (s *ProjectService) List(ctx context.Context, accountID string, page pagination.Params) ([]domain.Project, int, error) {
	projects, total, err := s.projects.ListByAccount(ctx, accountID, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

// Update merges the given fields into the project. Changing the design
// does not re-render the thumbnail.
func (s *ProjectService) Update(ctx context.Context, accountID, id string, input UpdateProjectInput) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, accountID, id)
	if err != nil {
		return nil, fmt.Errorf("get project for update: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("project name must not be empty")
		}
		project.Name = name
	}
	if input.ProductID != nil {
		productID := optionalID(input.ProductID)
		if err := s.checkProduct(ctx, productID); err != nil {
			return nil, err
		}
		project.ProductID = productID
	}
	if input.Design != nil {
		if err := input.Design.Validate(); err != nil {
			return nil, err
		}
		project.Design = *input.Design
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.publish(ctx, event.ActionUpdated, project)
	s.logger.InfoContext(ctx, "project updated", slog.String("project_id", project.ID))
	return project, nil
}

// Delete removes the project and its stored thumbnail.
func (s *ProjectService) Delete(ctx context.Context, accountID, id string) error {
	project, err := s.projects.GetByID(ctx, accountID, id)
	if err != nil {
		return fmt.Errorf("get project for delete: %w", err)
	}
	if err := s.projects.Delete(ctx, accountID, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if project.ThumbnailURL != nil {
		s.media.DeleteByURL(ctx, *project.ThumbnailURL)
	}

	s.publish(ctx, event.ActionDeleted, project)
	s.logger.InfoContext(ctx, "project deleted", slog.String("project_id", id))
	return nil
}

// RenderThumbnail rasterizes the project's design, stores the PNG under
// thumbnails/<project id>.png and records its URL on the project.
func (s *ProjectService) RenderThumbnail(ctx context.Context, accountID, id string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, accountID, id)
	if err != nil {
		return nil, fmt.Errorf("get project for thumbnail: %w", err)
	}

	png, err := s.render(ctx, &project.Design)
	if err != nil {
		return nil, err
	}

	stored, err := s.media.StoreBytes(ctx, domain.FolderThumbnails, project.ID, thumbnailContentType, png)
	if err != nil {
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	if err := s.projects.SetThumbnail(ctx, accountID, project.ID, stored.URL); err != nil {
		return nil, fmt.Errorf("record thumbnail: %w", err)
	}
	project.ThumbnailURL = &stored.URL
	project.UpdatedAt = time.Now().UTC()

	s.publish(ctx, event.ActionUpdated, project)
	s.logger.InfoContext(ctx, "project thumbnail rendered",
		slog.String("project_id", project.ID),
		slog.String("url", stored.URL),
		slog.Int("bytes", len(png)),
	)
	return project, nil
}

// Preview renders a design without storing anything.
func (s *ProjectService) Preview(ctx context.Context, design *domain.Design) ([]byte, error) {
	if err := design.Validate(); err != nil {
		return nil, err
	}
	return s.render(ctx, design)
}

func (s *ProjectService) render(ctx context.Context, design *domain.Design) ([]byte, error) {
	start := time.Now()
	png, err := s.renderer.Render(ctx, design)
	s.metrics.renderDuration.Observe(time.Since(start).Seconds())
	s.metrics.renders.WithLabelValues(result(err)).Inc()
	if err != nil {
		s.logger.ErrorContext(ctx, "thumbnail render failed",
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("render thumbnail: %w", err)
	}
	return png, nil
}

func (s *ProjectService) checkProduct(ctx context.Context, productID *string) error {
	if productID == nil {
		return nil
	}
	ok, err := s.products.Exists(ctx, *productID)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return apperrors.NotFound("product", *productID)
	}
	return nil
}

func (s *ProjectService) publish(ctx context.Context, action string, project *domain.Project) {
	if err := s.events.ProjectChanged(ctx, action, project); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish project event",
			slog.String("project_id", project.ID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
