package render

import (
	"context"
	"errors"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/pkg/breaker"
	apperrors "github.com/nahankar/shatika/pkg/errors"
)

// ErrDisabled is returned by the Disabled renderer.
var ErrDisabled = errors.New("thumbnail rendering is disabled")

// Renderer rasterizes a design into a PNG image.
type Renderer interface {
	Render(ctx context.Context, design *domain.Design) ([]byte, error)
	Close() error
}

// Disabled is a Renderer used when no headless browser is configured.
type Disabled struct{}

var _ Renderer = Disabled{}

// Render always fails with an upstream error.
func (Disabled) Render(context.Context, *domain.Design) ([]byte, error) {
	return nil, apperrors.Upstream("thumbnail render", ErrDisabled)
}

func (Disabled) Close() error { return nil }

// Guarded wraps a Renderer with a circuit breaker so a broken browser fails
// fast instead of holding requests for the full render timeout.
type Guarded struct {
	next    Renderer
	breaker *breaker.Breaker[[]byte]
}

var _ Renderer = (*Guarded)(nil)

// NewGuarded wraps next with br.
func NewGuarded(next Renderer, br *breaker.Breaker[[]byte]) *Guarded {
	return &Guarded{next: next, breaker: br}
}

// Render runs the wrapped renderer through the breaker. Every failure is
// reported as an upstream error.
func (g *Guarded) Render(ctx context.Context, design *domain.Design) ([]byte, error) {
	img, err := g.breaker.Execute(func() ([]byte, error) {
		return g.next.Render(ctx, design)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Upstream("thumbnail render", err)
	}
	return img, nil
}

// Close closes the wrapped renderer.
func (g *Guarded) Close() error {
	return g.next.Close()
}
