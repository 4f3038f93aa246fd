package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/techstore-checkout/api/controllers"
	"github.com/angelmondragon/techstore-checkout/api/middleware"
	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
)

// Dependencies are the services the local API exposes.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Cart      controllers.CartService
	Checkout  controllers.CheckoutRegistry
	Stores    controllers.StoreLister
	Resolver  *auth.Resolver
	Readiness map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	logg := deps.Logger
	resolver := deps.Resolver
	if resolver == nil {
		resolver = auth.NewResolver()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(resolver, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Post("/verify", controllers.CartVerify(deps.Cart, logg))
		})

		r.Get("/stores", controllers.CheckoutStores(deps.Stores, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutStart(deps.Checkout, logg))
			r.Route("/{checkoutId}", func(r chi.Router) {
				r.Get("/", controllers.CheckoutFetch(deps.Checkout, logg))
				r.Put("/contact", controllers.CheckoutSetContact(deps.Checkout, logg))
				r.Put("/address", controllers.CheckoutSetAddress(deps.Checkout, logg))
				r.Put("/payment", controllers.CheckoutSetPayment(deps.Checkout, logg))
				r.Put("/delivery", controllers.CheckoutSetDelivery(deps.Checkout, logg))
				r.Post("/next", controllers.CheckoutNext(deps.Checkout, logg))
				r.Post("/back", controllers.CheckoutBack(deps.Checkout, logg))
				r.Post("/submit", controllers.CheckoutSubmit(deps.Checkout, logg))
			})
		})
	})

	return r
}
