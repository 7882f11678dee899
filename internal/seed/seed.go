// Package seed populates a development database with a handloom catalog:
// categories, materials, arts and a deterministic set of products.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/service"
	apperrors "github.com/nahankar/shatika/pkg/errors"
	"github.com/nahankar/shatika/pkg/slug"
)

// FacetDef describes one seeded category, material or art.
type FacetDef struct {
	Kind        domain.FacetKind
	Name        string
	Description string
}

// Facets is the fixed facet set.
var Facets = []FacetDef{
	{domain.FacetCategory, "Sarees", "Six to nine yards of handwoven drape"},
	{domain.FacetCategory, "Dupattas", "Long scarves worn with kurtas"},
	{domain.FacetCategory, "Stoles", "Lightweight wraps for every season"},
	{domain.FacetCategory, "Kurtas", "Tunics cut from handloom fabric"},
	{domain.FacetMaterial, "Mulberry Silk", ""},
	{domain.FacetMaterial, "Cotton", ""},
	{domain.FacetMaterial, "Linen", ""},
	{domain.FacetMaterial, "Merino Wool", ""},
	{domain.FacetArt, "Ikat", "Resist-dyed yarns woven into blurred motifs"},
	{domain.FacetArt, "Kalamkari", "Hand-painted and block-printed cloth"},
	{domain.FacetArt, "Bandhani", "Tie-dye dots bound by hand"},
	{domain.FacetArt, "Block Print", "Carved wooden blocks pressed in natural dyes"},
}

var (
	adjectives = []string{"Heirloom", "Festive", "Everyday", "Temple", "Monsoon", "Royal", "Village", "Indigo"}
	colors     = []string{"indigo", "madder red", "turmeric", "ivory", "charcoal", "peacock green", "rust"}
	sizes      = map[string][]string{
		"kurtas": {"S", "M", "L", "XL"},
	}
)

// Options controls a seed run.
type Options struct {
	Products int
	Seed     int64
}

// Result reports what a run created.
type Result struct {
	FacetsCreated   int
	ProductsCreated int
	ProductsSkipped int
}

// Run creates the facet set and opts.Products products. Facets and
// products that already exist by slug are reused or skipped, so a run can
// be repeated.
func Run(ctx context.Context, catalog *service.CatalogService, opts Options, logger *slog.Logger) (*Result, error) {
	res := &Result{}

	ids, created, err := ensureFacets(ctx, catalog)
	if err != nil {
		return nil, err
	}
	res.FacetsCreated = created

	rng := rand.New(rand.NewSource(opts.Seed))
	for _, input := range Products(rng, opts.Products, ids) {
		_, err := catalog.CreateProduct(ctx, input)
		switch {
		case err == nil:
			res.ProductsCreated++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			res.ProductsSkipped++
		default:
			return res, fmt.Errorf("seed product %q: %w", input.Name, err)
		}
	}

	logger.InfoContext(ctx, "catalog seeded",
		slog.Int("facets_created", res.FacetsCreated),
		slog.Int("products_created", res.ProductsCreated),
		slog.Int("products_skipped", res.ProductsSkipped),
	)
	return res, nil
}

// FacetIDs holds the seeded facet ids by kind, keyed by slug.
type FacetIDs map[domain.FacetKind]map[string]string

func ensureFacets(ctx context.Context, catalog *service.CatalogService) (FacetIDs, int, error) {
	ids := FacetIDs{}
	for _, kind := range domain.FacetKinds() {
		existing, err := catalog.ListFacets(ctx, kind, repository.SortNameAsc)
		if err != nil {
			return nil, 0, err
		}
		ids[kind] = make(map[string]string, len(existing))
		for _, f := range existing {
			ids[kind][f.Slug] = f.ID
		}
	}

	created := 0
	for _, def := range Facets {
		s := slug.Generate(def.Name)
		if _, ok := ids[def.Kind][s]; ok {
			continue
		}
		f, err := catalog.CreateFacet(ctx, def.Kind, service.CreateFacetInput{
			Name:        def.Name,
			Slug:        s,
			Description: def.Description,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("seed %s %q: %w", def.Kind, def.Name, err)
		}
		ids[def.Kind][s] = f.ID
		created++
	}
	return ids, created, nil
}

// Products generates n product inputs. The same rng seed and facet ids
// always produce the same products, with unique slugs.
func Products(rng *rand.Rand, n int, ids FacetIDs) []service.CreateProductInput {
	categories := sortedSlugs(ids[domain.FacetCategory])
	materials := sortedSlugs(ids[domain.FacetMaterial])
	arts := sortedSlugs(ids[domain.FacetArt])

	out := make([]service.CreateProductInput, 0, n)
	for i := range n {
		category := pick(rng, categories)
		material := pick(rng, materials)
		art := pick(rng, arts)

		name := fmt.Sprintf("%s %s %s %s #%d",
			adjectives[rng.Intn(len(adjectives))], titleOf(art), titleOf(material), singular(titleOf(category)), i+1)

		input := service.CreateProductInput{
			Name:        name,
			Slug:        slug.Generate(name),
			Description: fmt.Sprintf("Handwoven %s with %s work.", titleOf(material), titleOf(art)),
			Price:       int64(500+rng.Intn(25000)) * 100,
			Currency:    "INR",
			Colors:      pickN(rng, colors, 1+rng.Intn(3)),
			Sizes:       sizes[category],
			Stock:       rng.Intn(50),
		}
		if id, ok := ids[domain.FacetCategory][category]; ok {
			input.CategoryID = &id
		}
		if id, ok := ids[domain.FacetMaterial][material]; ok {
			input.MaterialID = &id
		}
		if id, ok := ids[domain.FacetArt][art]; ok {
			input.ArtID = &id
		}
		out = append(out, input)
	}
	return out
}
