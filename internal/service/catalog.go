package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nahankar/shatika/internal/cache"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/event"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/search"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/pagination"
	"github.com/nahankar/shatika/pkg/slug"
)

// defaultCurrency is used when a product is created without one.
const defaultCurrency = "INR"

// maxProductImages bounds the images attached to one product.
const maxProductImages = 20

// CatalogService implements products, categories, materials and arts.
type CatalogService struct {
	products repository.ProductRepository
	facets   map[domain.FacetKind]repository.FacetRepository
	media    *MediaService
	cache    cache.ProductCache
	events   event.Publisher
	search   search.Index
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service. facets must hold one
// repository per facet kind.
func NewCatalogService(
	products repository.ProductRepository,
	facets []repository.FacetRepository,
	media *MediaService,
	productCache cache.ProductCache,
	events event.Publisher,
	logger *slog.Logger,
) *CatalogService {
	byKind := make(map[domain.FacetKind]repository.FacetRepository, len(facets))
	for _, f := range facets {
		byKind[f.Kind()] = f
	}
	return &CatalogService{
		products: products,
		facets:   byKind,
		media:    media,
		cache:    productCache,
		events:   events,
		logger:   logger,
	}
}

// UseSearch routes free-text product queries through idx and keeps it in
// sync with product writes. Without it, search falls back to SQL matching.
func (s *CatalogService) UseSearch(idx search.Index) {
	s.search = idx
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Slug        string
	Description string
	Price       int64
	Currency    string
	CategoryID  *string
	MaterialID  *string
	ArtID       *string
	Images      []string
	Sizes       []string
	Colors      []string
	Stock       int
	IsActive    *bool
}

// UpdateProductInput holds the product fields to change. Nil fields are
// left untouched; an empty facet id clears the reference.
type UpdateProductInput struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *int64
	Currency    *string
	CategoryID  *string
	MaterialID  *string
	ArtID       *string
	Images      *[]string
	Sizes       *[]string
	Colors      *[]string
	Stock       *int
	IsActive    *bool
}

// ListProductsInput holds the listing filters.
type ListProductsInput struct {
	CategoryID      *string
	MaterialID      *string
	ArtID           *string
	Search          *string
	MinPrice        *int64
	MaxPrice        *int64
	IncludeInactive bool
	Sort            repository.SortOrder
	Page            pagination.Params
}

// CreateProduct validates and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}
	if len(input.Images) > maxProductImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("a product can have at most %d images", maxProductImages))
	}

	productSlug, err := resolveSlug(input.Slug, name)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        productSlug,
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		CategoryID:  optionalID(input.CategoryID),
		MaterialID:  optionalID(input.MaterialID),
		ArtID:       optionalID(input.ArtID),
		Images:      cleanList(input.Images),
		Sizes:       cleanList(input.Sizes),
		Colors:      cleanList(input.Colors),
		Stock:       input.Stock,
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.indexProduct(ctx, product)
	s.publishProduct(ctx, event.ActionCreated, product)
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct looks a product up by id, or by slug when ref is not a UUID.
func (s *CatalogService) GetProduct(ctx context.Context, ref string) (*domain.Product, error) {
	var (
		product *domain.Product
		err     error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		product, err = s.products.GetByID(ctx, ref)
	} else {
		product, err = s.products.GetBySlug(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered page of products. Inactive products are
// hidden unless IncludeInactive is set. Free-text queries go through the
// search index when one is configured.
func (s *CatalogService) ListProducts(ctx context.Context, input ListProductsInput) ([]domain.Product, int, error) {
	if input.MinPrice != nil && input.MaxPrice != nil && *input.MinPrice > *input.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price must not exceed max_price")
	}

	if s.search != nil && input.Search != nil && strings.TrimSpace(*input.Search) != "" {
		products, total, err := s.searchProducts(ctx, input)
		if err == nil {
			return products, total, nil
		}
		s.logger.WarnContext(ctx, "product search failed, falling back to database",
			slog.String("error", err.Error()),
		)
	}

	products, total, err := s.products.List(ctx, repository.ProductFilter{
		CategoryID: input.CategoryID,
		MaterialID: input.MaterialID,
		ArtID:      input.ArtID,
		Search:     input.Search,
		MinPrice:   input.MinPrice,
		MaxPrice:   input.MaxPrice,
		ActiveOnly: !input.IncludeInactive,
		Sort:       input.Sort,
		Offset:     input.Page.Offset(),
		Limit:      input.Page.Limit(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// searchProducts ranks ids in the index, then loads the products from the
// database in that order. Ids the database no longer has are dropped.
func (s *CatalogService) searchProducts(ctx context.Context, input ListProductsInput) ([]domain.Product, int, error) {
	res, err := s.search.Search(ctx, search.Query{
		Text:       *input.Search,
		CategoryID: input.CategoryID,
		MaterialID: input.MaterialID,
		ArtID:      input.ArtID,
		MinPrice:   input.MinPrice,
		MaxPrice:   input.MaxPrice,
		ActiveOnly: !input.IncludeInactive,
		Sort:       input.Sort,
		Offset:     input.Page.Offset(),
		Limit:      input.Page.Limit(),
	})
	if err != nil {
		return nil, 0, err
	}
	if len(res.IDs) == 0 {
		return []domain.Product{}, res.Total, nil
	}

	found, _, err := s.products.List(ctx, repository.ProductFilter{
		IDs:        res.IDs,
		ActiveOnly: !input.IncludeInactive,
		Limit:      len(res.IDs),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("load search hits: %w", err)
	}

	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	products := make([]domain.Product, 0, len(res.IDs))
	for _, id := range res.IDs {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, res.Total, nil
}

// ReindexProducts rebuilds the search index from the database in batches
// and returns the number of products indexed.
func (s *CatalogService) ReindexProducts(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, apperrors.InvalidInput("product search is not enabled")
	}

	const batch = 500
	indexed := 0
	for offset := 0; ; offset += batch {
		products, _, err := s.products.List(ctx, repository.ProductFilter{
			Sort:   repository.SortCreatedAsc,
			Offset: offset,
			Limit:  batch,
		})
		if err != nil {
			return indexed, fmt.Errorf("list products for reindex: %w", err)
		}
		if len(products) == 0 {
			break
		}

		docs := make([]search.Document, len(products))
		for i := range products {
			docs[i] = search.DocumentFromProduct(&products[i])
		}
		if err := s.search.BulkIndex(ctx, docs); err != nil {
			return indexed, apperrors.Upstream("reindex products", err)
		}
		indexed += len(docs)

		if len(products) < batch {
			break
		}
	}

	s.logger.InfoContext(ctx, "products reindexed", slog.Int("count", indexed))
	return indexed, nil
}

// UpdateProduct merges the given fields into the product and re-validates.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = name
	}
	if input.Slug != nil {
		productSlug, err := resolveSlug(*input.Slug, product.Name)
		if err != nil {
			return nil, err
		}
		product.Slug = productSlug
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if currency == "" {
			return nil, apperrors.InvalidInput("currency must not be empty")
		}
		product.Currency = currency
	}
	if input.CategoryID != nil {
		product.CategoryID = optionalID(input.CategoryID)
	}
	if input.MaterialID != nil {
		product.MaterialID = optionalID(input.MaterialID)
	}
	if input.ArtID != nil {
		product.ArtID = optionalID(input.ArtID)
	}
	if input.Images != nil {
		if len(*input.Images) > maxProductImages {
			return nil, apperrors.InvalidInput(fmt.Sprintf("a product can have at most %d images", maxProductImages))
		}
		product.Images = cleanList(*input.Images)
	}
	if input.Sizes != nil {
		product.Sizes = cleanList(*input.Sizes)
	}
	if input.Colors != nil {
		product.Colors = cleanList(*input.Colors)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidate(ctx, product.ID)
	s.indexProduct(ctx, product)
	s.publishProduct(ctx, event.ActionUpdated, product)
	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))

	return product, nil
}

// DeleteProduct removes a product. Carts and favorites referencing it keep
// the dangling id and list it without product details.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidate(ctx, id)
	if s.search != nil {
		if err := s.search.Delete(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to remove product from search index",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.events.ProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))

	return nil
}

// AddProductImage uploads an image and appends its URL to the product.
func (s *CatalogService) AddProductImage(ctx context.Context, id string, file UploadInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for image: %w", err)
	}
	if len(product.Images) >= maxProductImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("a product can have at most %d images", maxProductImages))
	}

	file.Folder = domain.FolderProducts
	stored, err := s.media.Upload(ctx, file)
	if err != nil {
		return nil, err
	}

	product.Images = append(product.Images, stored.URL)
	if err := s.products.Update(ctx, product); err != nil {
		s.media.DeleteByURL(ctx, stored.URL)
		return nil, fmt.Errorf("attach product image: %w", err)
	}

	s.invalidate(ctx, product.ID)
	s.publishProduct(ctx, event.ActionUpdated, product)
	s.logger.InfoContext(ctx, "product image added",
		slog.String("product_id", product.ID),
		slog.String("url", stored.URL),
	)

	return product, nil
}

// RemoveProductImage detaches an image URL from the product and deletes
// the stored file when this service owns it.
func (s *CatalogService) RemoveProductImage(ctx context.Context, id, url string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for image: %w", err)
	}

	idx := slices.Index(product.Images, url)
	if idx < 0 {
		return nil, apperrors.NotFound("product image", url)
	}
	product.Images = slices.Delete(product.Images, idx, idx+1)

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("detach product image: %w", err)
	}

	s.media.DeleteByURL(ctx, url)
	s.invalidate(ctx, product.ID)
	s.publishProduct(ctx, event.ActionUpdated, product)
	s.logger.InfoContext(ctx, "product image removed",
		slog.String("product_id", product.ID),
		slog.String("url", url),
	)

	return product, nil
}

func (s *CatalogService) invalidate(ctx context.Context, ids ...string) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate product cache",
			slog.Any("product_ids", ids),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) indexProduct(ctx context.Context, product *domain.Product) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(ctx, search.DocumentFromProduct(product)); err != nil {
		s.logger.WarnContext(ctx, "failed to index product",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) publishProduct(ctx context.Context, action string, product *domain.Product) {
	if err := s.events.ProductChanged(ctx, action, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product event",
			slog.String("product_id", product.ID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// resolveSlug normalizes an explicit slug or derives one from name.
func resolveSlug(explicit, name string) (string, error) {
	source := explicit
	if strings.TrimSpace(source) == "" {
		source = name
	}
	s := slug.Generate(source)
	if s == "" {
		return "", apperrors.InvalidInput("slug must contain at least one letter or digit")
	}
	return s, nil
}

// optionalID maps nil and blank ids to nil.
func optionalID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// isHasDependents reports whether err is a delete blocked by references.
func isHasDependents(err error) bool {
	return errors.Is(err, apperrors.ErrHasDependents)
}
