package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes mounts the REST API under /api and an unauthenticated /health.
func SetupRoutes(r *mux.Router, h *Handler, secret string) {
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(Authenticate(secret))

	// Job endpoints
	api.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs", h.CreateJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.UpdateJob).Methods(http.MethodPatch)
	api.HandleFunc("/jobs/{id}", h.DeleteJob).Methods(http.MethodDelete)

	// Dispatch endpoints
	api.HandleFunc("/dispatch", h.DispatchJob).Methods(http.MethodPost)
	api.HandleFunc("/dispatch", h.DispatchBatch).Methods(http.MethodPatch)

	api.HandleFunc("/technicians", h.ListTechnicians).Methods(http.MethodGet)
}

// NewRouter returns a router with every route mounted.
func NewRouter(h *Handler, secret string) *mux.Router {
	r := mux.NewRouter()
	SetupRoutes(r, h, secret)
	return r
}
