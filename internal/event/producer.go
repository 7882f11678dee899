package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nahankar/shatika/internal/domain"
	pkgkafka "github.com/nahankar/shatika/pkg/kafka"
	"github.com/nahankar/shatika/pkg/logger"
)

// Source identifies events originating from this service.
const Source = "shatika-api"

// Actions carried in topic names.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Aggregate types.
const (
	AggregateAccount = "account"
	AggregateProduct = "product"
	AggregateProject = "project"
)

// Kafka topics written by this service.
var (
	TopicAccountRegistered = pkgkafka.Topic("account", "registered")
	TopicAccountDeleted    = pkgkafka.Topic("account", ActionDeleted)
	TopicCartUpdated       = pkgkafka.Topic("cart", ActionUpdated)
	TopicFavoritesUpdated  = pkgkafka.Topic("favorites", ActionUpdated)
)

// ProductTopic returns the topic for a product action.
func ProductTopic(action string) string {
	return pkgkafka.Topic("catalog", "product."+action)
}

// FacetTopic returns the topic for a category, material or art action.
func FacetTopic(kind domain.FacetKind, action string) string {
	return pkgkafka.Topic("catalog", string(kind)+"."+action)
}

// ProjectTopic returns the topic for a project action.
func ProjectTopic(action string) string {
	return pkgkafka.Topic("project", action)
}

// Publisher publishes domain events. Services treat publishing as best
// effort and only log failures.
type Publisher interface {
	AccountRegistered(ctx context.Context, account *domain.Account) error
	AccountDeleted(ctx context.Context, accountID string) error
	CartUpdated(ctx context.Context, accountID string, cart domain.Cart) error
	FavoritesUpdated(ctx context.Context, accountID, productID, action string) error
	ProductChanged(ctx context.Context, action string, product *domain.Product) error
	ProductDeleted(ctx context.Context, productID string) error
	FacetChanged(ctx context.Context, kind domain.FacetKind, action, facetID string) error
	ProjectChanged(ctx context.Context, action string, project *domain.Project) error
}

// AccountRegisteredData is the payload for account.registered.
type AccountRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// CartUpdatedData is the payload for cart.updated.
type CartUpdatedData struct {
	AccountID     string   `json:"account_id"`
	ItemCount     int      `json:"item_count"`
	TotalQuantity int      `json:"total_quantity"`
	ProductIDs    []string `json:"product_ids"`
}

// FavoritesUpdatedData is the payload for favorites.updated.
type FavoritesUpdatedData struct {
	AccountID string `json:"account_id"`
	ProductID string `json:"product_id"`
	Action    string `json:"action"`
}

// ProductData is the payload for product events.
type ProductData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	IsActive bool   `json:"is_active"`
}

// IDData is the payload for events that only carry an id.
type IDData struct {
	ID string `json:"id"`
}

// ProjectData is the payload for project events.
type ProjectData struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"account_id"`
	Name         string  `json:"name"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

// eventWriter is the part of *pkgkafka.Producer used here.
type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  eventWriter
	logger *slog.Logger
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a new event producer.
func NewProducer(kafka eventWriter, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// AccountRegistered publishes account.registered.
func (p *Producer) AccountRegistered(ctx context.Context, a *domain.Account) error {
	return p.publish(ctx, TopicAccountRegistered, a.ID, AggregateAccount, AccountRegisteredData{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Role:  a.Role,
	})
}

// AccountDeleted publishes account.deleted.
func (p *Producer) AccountDeleted(ctx context.Context, accountID string) error {
	return p.publish(ctx, TopicAccountDeleted, accountID, AggregateAccount, IDData{ID: accountID})
}

// CartUpdated publishes cart.updated with a summary of the new cart.
func (p *Producer) CartUpdated(ctx context.Context, accountID string, cart domain.Cart) error {
	return p.publish(ctx, TopicCartUpdated, accountID, AggregateAccount, CartUpdatedData{
		AccountID:     accountID,
		ItemCount:     len(cart),
		TotalQuantity: cart.TotalQuantity(),
		ProductIDs:    cart.ProductIDs(),
	})
}

// FavoritesUpdated publishes favorites.updated.
func (p *Producer) FavoritesUpdated(ctx context.Context, accountID, productID, action string) error {
	return p.publish(ctx, TopicFavoritesUpdated, accountID, AggregateAccount, FavoritesUpdatedData{
		AccountID: accountID,
		ProductID: productID,
		Action:    action,
	})
}

// ProductChanged publishes catalog.product.<action>.
func (p *Producer) ProductChanged(ctx context.Context, action string, product *domain.Product) error {
	return p.publish(ctx, ProductTopic(action), product.ID, AggregateProduct, ProductData{
		ID:       product.ID,
		Name:     product.Name,
		Slug:     product.Slug,
		Price:    product.Price,
		Currency: product.Currency,
		IsActive: product.IsActive,
	})
}

// ProductDeleted publishes catalog.product.deleted.
func (p *Producer) ProductDeleted(ctx context.Context, productID string) error {
	return p.publish(ctx, ProductTopic(ActionDeleted), productID, AggregateProduct, IDData{ID: productID})
}

// FacetChanged publishes catalog.<kind>.<action>.
func (p *Producer) FacetChanged(ctx context.Context, kind domain.FacetKind, action, facetID string) error {
	return p.publish(ctx, FacetTopic(kind, action), facetID, string(kind), IDData{ID: facetID})
}

// ProjectChanged publishes project.<action>.
func (p *Producer) ProjectChanged(ctx context.Context, action string, project *domain.Project) error {
	return p.publish(ctx, ProjectTopic(action), project.ID, AggregateProject, ProjectData{
		ID:           project.ID,
		AccountID:    project.AccountID,
		Name:         project.Name,
		ThumbnailURL: project.ThumbnailURL,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.InfoContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
