package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tavola-backend/api/controllers"
	"github.com/angelmondragon/tavola-backend/api/middleware"
	"github.com/angelmondragon/tavola-backend/internal/pricechanges"
	"github.com/angelmondragon/tavola-backend/internal/pricing"
	"github.com/angelmondragon/tavola-backend/pkg/config"
	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/metrics"
	"github.com/angelmondragon/tavola-backend/pkg/redis"
)

type businessLookup interface {
	Current(ctx context.Context) (*models.Business, error)
}

// NewRouter wires the public, admin and operational routes. redisClient may
// be nil, which disables idempotency and rate limiting.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	businesses businessLookup,
	priceChangeService pricechanges.Service,
	quoteService pricing.Service,
) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	readiness := map[string]controllers.Pinger{"database": dbP, "redis": nil}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	r.Route("/api/v1/menu", func(r chi.Router) {
		r.Post("/items/{itemId}/quote", controllers.MenuQuoteItem(quoteService, logg))
	})

	mutationPolicy := middleware.NewRateLimitPolicy(
		"pricing",
		cfg.Pricing.MutationRateWindow,
		cfg.Pricing.MutationRateLimit,
	)

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.BusinessContext(businesses, logg))
		r.Use(middleware.RequireRole(logg, enums.MemberRoleOwner, enums.MemberRoleAdmin))
		var replays redis.IdempotencyStore
		if redisClient != nil {
			r.Use(middleware.ActorRateLimit(mutationPolicy, redisClient, logg))
			replays = redisClient
		}
		idempotent := func(ttl time.Duration) func(http.Handler) http.Handler {
			return middleware.Idempotent(replays, ttl, logg)
		}

		r.Route("/prices", func(r chi.Router) {
			r.With(idempotent(middleware.BulkChangeReplayTTL)).
				Post("/bulk", controllers.AdminBulkPriceChange(priceChangeService, logg))
			r.Get("/history", controllers.AdminListPriceHistory(priceChangeService, logg))
			r.With(idempotent(middleware.BulkChangeReplayTTL)).
				Delete("/history", controllers.AdminClearPriceHistory(priceChangeService, logg))
			r.Get("/history/{historyId}", controllers.AdminGetPriceHistory(priceChangeService, logg))
			r.Delete("/history/{historyId}", controllers.AdminDeletePriceHistory(priceChangeService, logg))
			r.With(idempotent(middleware.RollbackReplayTTL)).
				Post("/history/{historyId}/rollback", controllers.AdminRollbackPriceChange(priceChangeService, logg))
		})
	})

	return r
}
