package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fieldDispatch/internal/auth"
	"fieldDispatch/internal/dispatch"
	"fieldDispatch/models"
)

// Handler serves the REST API over the dispatch service.
type Handler struct {
	svc    *dispatch.Service
	users  auth.UserLookup
	logger *slog.Logger
}

// NewHandler creates a handler. users may be nil to trust token roles alone.
func NewHandler(svc *dispatch.Service, users auth.UserLookup, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, users: users, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	writeError(w, err)
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", dispatch.ErrValidation, err)
	}
	return nil
}

// ListJobs handles GET /api/jobs?status=&technicianId=&near=lat,lng&radiusMiles=
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f models.JobFilter
	if v := q.Get("status"); v != "" {
		st := models.JobStatus(strings.ToUpper(v))
		f.Status = &st
	}
	if v := q.Get("technicianId"); v != "" {
		f.TechnicianID = &v
	}
	if v := q.Get("near"); v != "" {
		near, err := parseNear(v, q.Get("radiusMiles"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		f.Near = near
	}
	jobs, err := h.svc.ListJobs(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func parseNear(near, radius string) (*models.GeoRadius, error) {
	parts := strings.Split(near, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: near must be lat,lng", dispatch.ErrValidation)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	miles, err3 := strconv.ParseFloat(radius, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("%w: near and radiusMiles must be numbers", dispatch.ErrValidation)
	}
	return &models.GeoRadius{Latitude: lat, Longitude: lng, RadiusMiles: miles}, nil
}

// CreateJob handles POST /api/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireDispatcher(r.Context(), h.users); err != nil {
		h.fail(w, r, err)
		return
	}
	var in dispatch.NewJob
	if err := decodeBody(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.svc.CreateJob(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetJob handles GET /api/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// UpdateJob handles PATCH /api/jobs/{id}. Any authenticated caller may update status or technician.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var p dispatch.JobPatch
	if err := decodeBody(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.svc.UpdateJobFields(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DeleteJob handles DELETE /api/jobs/{id}
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireDispatcher(r.Context(), h.users); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteJob(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Job deleted successfully"})
}

// DispatchJob handles POST /api/dispatch with body {"jobId": "..."}
func (h *Handler) DispatchJob(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireDispatcher(r.Context(), h.users); err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		JobID string `json:"jobId"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.DispatchOne(r.Context(), req.JobID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DispatchBatch handles PATCH /api/dispatch
func (h *Handler) DispatchBatch(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireDispatcher(r.Context(), h.users); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.DispatchBatch(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     fmt.Sprintf("Dispatched %d jobs", len(res)),
		"assignments": res,
	})
}

// ListTechnicians handles GET /api/technicians[?available=true]
func (h *Handler) ListTechnicians(w http.ResponseWriter, r *http.Request) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("available")); ok {
		techs, err := h.svc.AvailableTechnicians(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, techs)
		return
	}
	techs, err := h.svc.ListTechniciansWithLoad(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, techs)
}
