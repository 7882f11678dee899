package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/render"
	"github.com/nahankar/shatika/internal/storage/memory"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/pagination"
	"github.com/nahankar/shatika/pkg/validator"
)

type stubRenderer struct {
	png   []byte
	err   error
	calls int
}

func (r *stubRenderer) Render(context.Context, *domain.Design) ([]byte, error) {
	r.calls++
	return r.png, r.err
}

func (r *stubRenderer) Close() error { return nil }

type projectFixture struct {
	svc      *ProjectService
	projects *mockProjectRepository
	products *mockProductRepository
	renderer *stubRenderer
	store    *memory.Storage
	pub      *recordingPublisher
}

func newProjectFixture(renderer *stubRenderer) *projectFixture {
	f := &projectFixture{
		projects: new(mockProjectRepository),
		products: new(mockProductRepository),
		renderer: renderer,
		store:    memory.New("http://cdn.test"),
		pub:      &recordingPublisher{},
	}
	metrics := NewMetrics(nil)
	media := NewMediaService(f.store, 1024, metrics, newTestLogger())
	f.svc = NewProjectService(f.projects, f.products, renderer, media, f.pub, metrics, newTestLogger())
	return f
}

func validDesign() domain.Design {
	return domain.Design{
		Width:           400,
		Height:          300,
		BackgroundColor: "#ffffff",
		Shapes: []domain.Shape{
			{ID: "s1", X: 10, Y: 10, Width: 100, Height: 80, Fill: "#aa3300"},
		},
	}
}

func TestProjectService_Create(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})
	f.products.On("Exists", ctx, "p1").Return(true, nil)
	f.projects.On("Create", ctx, mock.AnythingOfType("*domain.Project")).Return(nil)

	project, err := f.svc.Create(ctx, "acc-1", CreateProjectInput{
		Name:      "Wedding dupatta",
		ProductID: strPtr("p1"),
		Design:    validDesign(),
	})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", project.AccountID)
	assert.Equal(t, []string{"project.created"}, f.pub.recorded())
}

func TestProjectService_Create_InvalidDesign(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})

	design := validDesign()
	design.Width = 0
	design.Shapes[0].Fill = "orange"

	_, err := f.svc.Create(ctx, "acc-1", CreateProjectInput{Name: "Bad", Design: design})
	var valErr *validator.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "width")
	assert.Contains(t, valErr.Fields(), "shapes[0].fill")
	f.projects.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectService_Create_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})
	f.products.On("Exists", ctx, "ghost").Return(false, nil)

	_, err := f.svc.Create(ctx, "acc-1", CreateProjectInput{Name: "X", ProductID: strPtr("ghost"), Design: validDesign()})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProjectService_GetIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})
	f.projects.On("GetByID", ctx, "acc-2", "proj-1").Return(nil, apperrors.NotFound("project", "proj-1"))

	_, err := f.svc.Get(ctx, "acc-2", "proj-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProjectService_List(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})
	f.projects.On("ListByAccount", ctx, "acc-1", 10, 10).Return([]domain.Project{{ID: "proj-1"}}, 11, nil)

	projects, total, err := f.svc.List(ctx, "acc-1", pagination.Params{Page: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	assert.Equal(t, 11, total)
}

func TestProjectService_Update(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})
	existing := &domain.Project{ID: "proj-1", AccountID: "acc-1", Name: "Old", ProductID: strPtr("p1"), Design: validDesign()}
	f.projects.On("GetByID", ctx, "acc-1", "proj-1").Return(existing, nil)
	f.projects.On("Update", ctx, existing).Return(nil)

	updated, err := f.svc.Update(ctx, "acc-1", "proj-1", UpdateProjectInput{Name: strPtr("New"), ProductID: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Nil(t, updated.ProductID)
	f.products.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestProjectService_RenderThumbnail(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{png: pngHeader})
	project := &domain.Project{ID: "proj-1", AccountID: "acc-1", Design: validDesign()}
	f.projects.On("GetByID", ctx, "acc-1", "proj-1").Return(project, nil)
	f.projects.On("SetThumbnail", ctx, "acc-1", "proj-1", "http://cdn.test/media/thumbnails/proj-1.png").Return(nil)

	updated, err := f.svc.RenderThumbnail(ctx, "acc-1", "proj-1")
	require.NoError(t, err)
	require.NotNil(t, updated.ThumbnailURL)
	assert.Equal(t, "http://cdn.test/media/thumbnails/proj-1.png", *updated.ThumbnailURL)

	data, ct, ok := f.store.Get("thumbnails/proj-1.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, []string{"project.updated"}, f.pub.recorded())
}

func TestProjectService_RenderThumbnail_RendererFailure(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{err: apperrors.Upstream("thumbnail render", errors.New("asset timeout"))})
	f.projects.On("GetByID", ctx, "acc-1", "proj-1").Return(&domain.Project{ID: "proj-1", Design: validDesign()}, nil)

	_, err := f.svc.RenderThumbnail(ctx, "acc-1", "proj-1")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, 0, f.store.Len())
	f.projects.AssertNotCalled(t, "SetThumbnail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectService_Preview(t *testing.T) {
	ctx := context.Background()

	t.Run("renders without storing", func(t *testing.T) {
		renderer := &stubRenderer{png: pngHeader}
		f := newProjectFixture(renderer)
		design := validDesign()

		png, err := f.svc.Preview(ctx, &design)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, png)
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("disabled renderer", func(t *testing.T) {
		f := newProjectFixture(&stubRenderer{})
		f.svc.renderer = render.Disabled{}
		design := validDesign()

		_, err := f.svc.Preview(ctx, &design)
		assert.ErrorIs(t, err, render.ErrDisabled)
	})

	t.Run("invalid design is not rendered", func(t *testing.T) {
		renderer := &stubRenderer{png: pngHeader}
		f := newProjectFixture(renderer)
		design := validDesign()
		design.Height = 10000

		_, err := f.svc.Preview(ctx, &design)
		require.Error(t, err)
		assert.Equal(t, 0, renderer.calls)
	})
}

func TestProjectService_Delete_RemovesThumbnail(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(&stubRenderer{})

	stored, err := f.svc.media.StoreBytes(ctx, domain.FolderThumbnails, "proj-1", "image/png", pngHeader)
	require.NoError(t, err)
	project := &domain.Project{ID: "proj-1", AccountID: "acc-1", ThumbnailURL: &stored.URL}
	f.projects.On("GetByID", ctx, "acc-1", "proj-1").Return(project, nil)
	f.projects.On("Delete", ctx, "acc-1", "proj-1").Return(nil)

	require.NoError(t, f.svc.Delete(ctx, "acc-1", "proj-1"))
	assert.Equal(t, 0, f.store.Len())
}
