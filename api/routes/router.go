package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carewell/foundation-backend/api/controllers"
	"github.com/carewell/foundation-backend/api/middleware"
	bloodsvc "github.com/carewell/foundation-backend/internal/bloodrequests"
	invsvc "github.com/carewell/foundation-backend/internal/inventory"
	ordersvc "github.com/carewell/foundation-backend/internal/orders"
	"github.com/carewell/foundation-backend/pkg/config"
	"github.com/carewell/foundation-backend/pkg/db"
	"github.com/carewell/foundation-backend/pkg/enums"
	"github.com/carewell/foundation-backend/pkg/logger"
	pkgredis "github.com/carewell/foundation-backend/pkg/redis"
)

// NewRouter wires every HTTP endpoint with its middleware chain. Mutating
// routes under /api/v1 sit behind auth plus the idempotency guard; staff
// routes additionally require an operator or admin token.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *pkgredis.Client,
	registry *prometheus.Registry,
	inventoryService *invsvc.Service,
	orderService *ordersvc.Service,
	bloodRequestService *bloodsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var dbPinger, cachePinger controllers.Pinger
	if dbClient != nil {
		dbPinger = dbClient
	}
	if redisClient != nil {
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbPinger, cachePinger, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	// The storefront listing is the only anonymous data endpoint.
	r.Get("/api/v1/inventory/public", controllers.ListPublicInventory(inventoryService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(orderService, logg))
			r.Get("/me", controllers.ListMyOrders(orderService, logg))
			r.Get("/{orderID}", controllers.GetOrder(orderService, logg))
			r.With(staffOnly(logg)).Get("/", controllers.ListAllOrders(orderService, logg))
		})

		r.Route("/blood-requests", func(r chi.Router) {
			r.Post("/", controllers.CreateBloodRequest(bloodRequestService, logg))
			r.With(staffOnly(logg)).Get("/", controllers.ListBloodRequests(bloodRequestService, logg))
			r.With(staffOnly(logg)).Get("/{requestID}", controllers.GetBloodRequest(bloodRequestService, logg))
			r.With(staffOnly(logg)).Put("/{requestID}", controllers.TransitionBloodRequest(bloodRequestService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(staffOnly(logg))
			r.Post("/", controllers.CreateInventoryItem(inventoryService, logg))
			r.Post("/{sku}/restock", controllers.RestockInventoryItem(inventoryService, logg))
		})
	})

	return r
}

func staffOnly(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(logg, enums.RoleOperator.String(), enums.RoleAdmin.String())
}
