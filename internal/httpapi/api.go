package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/invite"
	"csfcompass.org/internal/obs"
	"csfcompass.org/internal/vendor"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the API dependencies and edge settings.
type Options struct {
	Assessments *assessment.Service
	Vendors     vendor.Store
	Portal      *invite.Service
	Ready       ReadyProbe
	AdminAPIKey string
	Version     string

	// DefaultExpiryDays applies when a dispatch request omits the expiry.
	DefaultExpiryDays int

	// Edge token-bucket budget, applied per client IP before routing.
	HTTPPerSecond float64
	HTTPBurst     int
}

// API is the HTTP layer. Trusted management routes live under /v1 behind
// the admin key; the vendor portal under /v1/vendor-portal is public and
// authenticates by capability token alone.
type API struct {
	router *mux.Router
	opts   Options
}

func New(opts Options) *API {
	if opts.DefaultExpiryDays <= 0 {
		opts.DefaultExpiryDays = 7
	}
	if opts.HTTPPerSecond <= 0 {
		opts.HTTPPerSecond = 50
	}
	if opts.HTTPBurst <= 0 {
		opts.HTTPBurst = 100
	}
	a := &API{router: mux.NewRouter(), opts: opts}

	r := a.router
	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	// Public portal routes must be registered before the admin subrouter
	// so they are matched without the admin key.
	portal := r.PathPrefix("/v1/vendor-portal").Subrouter()
	portal.HandleFunc("/validate", a.portalValidate).Methods(http.MethodPost)
	portal.HandleFunc("/items", a.portalListItems).Methods(http.MethodGet)
	portal.HandleFunc("/items/{itemID}", a.portalUpdateItem).Methods(http.MethodPatch)
	portal.HandleFunc("/complete", a.portalComplete).Methods(http.MethodPost)

	admin := r.PathPrefix("/v1").Subrouter()
	admin.Use(a.requireAdminKey)
	admin.HandleFunc("/assessments", a.createAssessment).Methods(http.MethodPost)
	admin.HandleFunc("/assessments", a.listAssessments).Methods(http.MethodGet)
	admin.HandleFunc("/assessments/{id}", a.getAssessment).Methods(http.MethodGet)
	admin.HandleFunc("/assessments/{id}/items", a.listItems).Methods(http.MethodGet)
	admin.HandleFunc("/assessments/{id}/items/{itemID}", a.updateItem).Methods(http.MethodPatch)
	admin.HandleFunc("/assessments/{id}/complete", a.completeAssessment).Methods(http.MethodPost)
	admin.HandleFunc("/assessments/{id}/progress", a.listProgress).Methods(http.MethodGet)
	admin.HandleFunc("/assessments/{id}/comparison", a.comparison).Methods(http.MethodGet)
	admin.HandleFunc("/assessments/{id}/invitations", a.dispatchInvitation).Methods(http.MethodPost)
	admin.HandleFunc("/assessments/{id}/invitations", a.getInvitation).Methods(http.MethodGet)
	admin.HandleFunc("/invitations/{id}/revoke", a.revokeInvitation).Methods(http.MethodPost)
	admin.HandleFunc("/vendors", a.createVendor).Methods(http.MethodPost)
	admin.HandleFunc("/vendors", a.listVendors).Methods(http.MethodGet)
	admin.HandleFunc("/vendors/{id}", a.getVendor).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.router)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.opts.HTTPBurst, a.opts.HTTPPerSecond)
	h = LoggingJSON(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = RequestID(h)
	return h
}
