package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nahankar/shatika/internal/auth"
	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/health"
	"github.com/nahankar/shatika/pkg/middleware"
)

// publicCacheSeconds is the max-age of anonymous catalog reads.
const publicCacheSeconds = 60

// Services groups the application services the router exposes.
type Services struct {
	Accounts  *service.AccountService
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Favorites *service.FavoriteService
	Projects  *service.ProjectService
	Media     *service.MediaService
	Dashboard *service.DashboardService
}

// RouterConfig holds the transport-level settings of the router.
type RouterConfig struct {
	ServiceName string
	Development bool
	CORS        middleware.CORSConfig
	// UploadsDir is served under /uploads/ when set (local storage driver).
	UploadsDir string
	// Media is served under /media/ when set (memory storage driver).
	Media             http.Handler
	PprofAllowedCIDRs []string
	// AuthRateLimitRPS and AuthRateLimitBurst bound register and login
	// attempts per client IP. Zero disables the limit.
	AuthRateLimitRPS   int
	AuthRateLimitBurst int
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	svcs Services,
	cfg RouterConfig,
	healthHandler *health.Handler,
	httpMetrics *middleware.HTTPMetrics,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(middleware.DebugErrors(cfg.Development))

	// Ops endpoints
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	if cfg.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}
	if cfg.Media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", cfg.Media))
	}

	authenticate := accountAuthenticator(svcs.Accounts)
	requireAuth := middleware.Auth(authenticate, logger)
	optionalAuth := middleware.OptionalAuth(authenticate, logger)
	requireAdmin := middleware.RequireRole(auth.Authorize, logger, domain.RoleAdmin)

	accountHandler := NewAccountHandler(svcs.Accounts, logger)
	productHandler := NewProductHandler(svcs.Catalog, svcs.Media.MaxBytes(), logger)
	cartHandler := NewCartHandler(svcs.Cart, logger)
	favoriteHandler := NewFavoriteHandler(svcs.Favorites, logger)
	projectHandler := NewProjectHandler(svcs.Projects, logger)
	uploadHandler := NewUploadHandler(svcs.Media, logger)
	adminHandler := NewAdminHandler(svcs.Accounts, svcs.Dashboard, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(limitBody)
			r.Use(ContentTypeJSON)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger))

				r.Post("/register", accountHandler.Register)
				r.Post("/login", accountHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Get("/me", accountHandler.Me)
				r.Put("/me", accountHandler.UpdateMe)
				r.Delete("/me", accountHandler.DeleteMe)
				r.Put("/password", accountHandler.ChangePassword)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)

				r.Get("/", productHandler.ListProducts)
				r.Get("/{idOrSlug}", productHandler.GetProduct)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(requireAdmin)

				// Multipart; the body limit comes from the upload size.
				r.Post("/{id}/images", productHandler.AddImage)

				r.Group(func(r chi.Router) {
					r.Use(limitBody)
					r.Use(ContentTypeJSON)

					r.Post("/", productHandler.CreateProduct)
					r.Put("/{id}", productHandler.UpdateProduct)
					r.Patch("/{id}", productHandler.UpdateProduct)
					r.Delete("/{id}", productHandler.DeleteProduct)
					r.Delete("/{id}/images", productHandler.RemoveImage)
				})
			})
		})

		facetRoutes := map[string]domain.FacetKind{
			"/categories": domain.FacetCategory,
			"/materials":  domain.FacetMaterial,
			"/arts":       domain.FacetArt,
		}
		for path, kind := range facetRoutes {
			h := NewFacetHandler(kind, svcs.Catalog, logger)
			r.Route(path, func(r chi.Router) {
				r.Use(limitBody)
				r.Use(ContentTypeJSON)

				r.With(middleware.CacheControl(publicCacheSeconds)).Get("/", h.List)
				r.With(middleware.CacheControl(publicCacheSeconds)).Get("/{id}", h.Get)

				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Use(requireAdmin)

					r.Post("/", h.Create)
					r.Put("/{id}", h.Update)
					r.Patch("/{id}", h.Update)
					r.Delete("/{id}", h.Delete)
				})
			})
		}

		// Authenticated JSON endpoints
		r.Group(func(r chi.Router) {
			r.Use(limitBody)
			r.Use(ContentTypeJSON)
			r.Use(requireAuth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/", cartHandler.AddItem)
				r.Delete("/", cartHandler.ClearCart)
				r.Put("/{itemId}", cartHandler.UpdateItem)
				r.Patch("/{itemId}", cartHandler.UpdateItem)
				r.Delete("/{itemId}", cartHandler.RemoveItem)
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", favoriteHandler.List)
				r.Post("/{productId}", favoriteHandler.Add)
				r.Delete("/{productId}", favoriteHandler.Remove)
				r.Get("/{productId}", favoriteHandler.Check)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.List)
				r.Post("/", projectHandler.Create)
				r.Get("/{id}", projectHandler.Get)
				r.Put("/{id}", projectHandler.Update)
				r.Delete("/{id}", projectHandler.Delete)
				r.Post("/{id}/thumbnail", projectHandler.RenderThumbnail)
			})

			r.Post("/thumbnails/preview", projectHandler.Preview)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/stats", adminHandler.Stats)
				r.Get("/accounts", adminHandler.ListAccounts)
				r.Get("/accounts/{id}", adminHandler.GetAccount)
				r.Put("/accounts/{id}/role", adminHandler.UpdateRole)
				r.Post("/search/reindex", productHandler.Reindex)
			})
		})

		r.With(requireAuth, requireAdmin).Post("/uploads", uploadHandler.Upload)
	})

	return r
}

// accountAuthenticator bridges bearer tokens to the account service. The
// principal carries the stored role, not the one in the token.
func accountAuthenticator(accounts *service.AccountService) middleware.Authenticator {
	return func(ctx context.Context, token string) (*middleware.Principal, error) {
		account, err := accounts.ResolveToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			AccountID: account.ID,
			Email:     account.Email,
			Role:      account.Role,
		}, nil
	}
}
