package event

import (
	"context"

	"github.com/nahankar/shatika/internal/domain"
)

// Nop discards every event. Used when Kafka is disabled.
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) AccountRegistered(context.Context, *domain.Account) error { return nil }
func (Nop) AccountDeleted(context.Context, string) error { return nil }
func (Nop) CartUpdated(context.Context, string, domain.Cart) error { return nil }
func (Nop) FavoritesUpdated(context.Context, string, string, string) error { return nil }
func (Nop) ProductChanged(context.Context, string, *domain.Product) error { return nil }
func (Nop) ProductDeleted(context.Context, string) error { return nil }
func (Nop) FacetChanged(context.Context, domain.FacetKind, string, string) error { return nil }
func (Nop) ProjectChanged(context.Context, string, *domain.Project) error { return nil }
