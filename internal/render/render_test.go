package render

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/pkg/breaker"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

type fakeRenderer struct {
	img    []byte
	err    error
	calls  int
	closed bool
}

func (f *fakeRenderer) Render(context.Context, *domain.Design) ([]byte, error) {
	f.calls++
	return f.img, f.err
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestBreaker() *breaker.Breaker[[]byte] {
	return breaker.New[[]byte](breaker.Config{
		Name:         "render-test",
		MaxRequests:  1,
		Timeout:      time.Minute,
		FailureRatio: 1,
		MinRequests:  2,
	}, nil, testLogger())
}

func TestDisabled_Render(t *testing.T) {
	_, err := Disabled{}.Render(context.Background(), &domain.Design{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.NoError(t, Disabled{}.Close())
}

func TestGuarded_PassesThrough(t *testing.T) {
	next := &fakeRenderer{img: []byte("png")}
	g := NewGuarded(next, newTestBreaker())

	img, err := g.Render(context.Background(), &domain.Design{Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), img)

	require.NoError(t, g.Close())
	assert.True(t, next.closed)
}

func TestGuarded_OpensAfterFailures(t *testing.T) {
	next := &fakeRenderer{err: errors.New("browser crashed")}
	g := NewGuarded(next, newTestBreaker())
	ctx := context.Background()

	for range 2 {
		_, err := g.Render(ctx, &domain.Design{})
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
	}

	_, err := g.Render(ctx, &domain.Design{})
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.ErrorIs(t, err, breaker.ErrOpen)
	assert.Equal(t, 2, next.calls)
}
