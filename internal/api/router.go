package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Callbacks  Callbacks
	Entries    EntryFinder
	Health     Pinger
	Gatherer   prometheus.Gatherer
	AdminToken string
}

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(d Deps) http.Handler {
	h := NewHandler(d.Callbacks, d.Entries, d.Health)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HealthHandler)

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/callback/{operation}", h.CallbackHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireBearer(d.AdminToken))
		r.Post("/addBalance", h.AddBalanceHandler)
		r.Get("/entries/{refId}", h.GetEntryHandler)
	})

	return r
}
