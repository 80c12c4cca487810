package api

import (
	"net/http"
	"strings"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/darshan-rambhia/fleetglint/internal/store"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 100
)

// @Summary List alerts
// @Description One page of alerts, newest first
// @Produce json
// @Param page query int false "Page (1-based)" default(1)
// @Param limit query int false "Page size (1-100)" default(50)
// @Param resolved query bool false "Filter by resolved flag"
// @Param machine_id query string false "Filter by machine"
// @Param search query string false "Match message, type or hostname"
// @Success 200 {object} model.AlertPage
// @Failure 400 {object} errorResponse
// @Router /api/alerts [get]
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.AlertFilter{
		MachineID: q.Get("machine_id"),
		Search:    strings.TrimSpace(q.Get("search")),
		Page:      max(queryInt(r, "page", 1), 1),
		Limit:     min(max(queryInt(r, "limit", defaultAlertLimit), 1), maxAlertLimit),
	}
	switch q.Get("resolved") {
	case "":
	case "true":
		f.Resolved = new(bool)
		*f.Resolved = true
	case "false":
		f.Resolved = new(bool)
	default:
		writeError(w, r, model.NewValidationError("resolved", "must be true or false"))
		return
	}

	page, err := s.Store.ListAlerts(r.Context(), f)
	if err != nil {
		writeError(w, r, model.Transient("listing alerts", err))
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// @Summary Delete alerts
// @Description Bulk delete by scope
// @Produce json
// @Param scope query string true "all, active or resolved"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} errorResponse
// @Router /api/alerts [delete]
func (s *Server) handleDeleteAlerts(w http.ResponseWriter, r *http.Request) {
	scope := store.AlertScope(r.URL.Query().Get("scope"))
	n, err := s.Store.DeleteAlerts(r.Context(), scope)
	if err != nil {
		writeError(w, r, model.Transient("deleting alerts", err))
		return
	}
	if scope != store.ScopeResolved {
		s.Cache.ClearAlerts()
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"deleted": n})
}

// patchAlertRequest only supports resolving. Reopening an alert is not
// possible; a recurring condition opens a new one.
type patchAlertRequest struct {
	Resolved *bool `json:"resolved"`
}

// @Summary Resolve an alert
// @Description Marks one alert resolved. It only comes back when a later report triggers it again
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} model.Alert
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/alerts/{id} [patch]
func (s *Server) handlePatchAlert(w http.ResponseWriter, r *http.Request) {
	var req patchAlertRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Resolved != nil && !*req.Resolved {
		writeError(w, r, model.NewValidationError("resolved", "alerts can only be resolved"))
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := s.Store.GetAlert(ctx, id); err != nil {
		writeError(w, r, model.Transient("loading alert", err))
		return
	}
	if _, err := s.Alerts.Resolve(ctx, []string{id}); err != nil {
		writeError(w, r, err)
		return
	}
	s.Cache.DropAlerts(id)

	a, err := s.Store.GetAlert(ctx, id)
	if err != nil {
		writeError(w, r, model.Transient("loading alert", err))
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

type resolveRequest struct {
	IDs []string `json:"ids"`
}

// @Summary Resolve alerts
// @Description Marks the given alerts resolved
// @Accept json
// @Produce json
// @Param body body resolveRequest true "Alert IDs"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} errorResponse
// @Router /api/alerts/resolve [post]
func (s *Server) handleResolveAlerts(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, model.NewValidationError("ids", "must not be empty"))
		return
	}
	n, err := s.Alerts.Resolve(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Cache.DropAlerts(req.IDs...)
	writeJSON(w, r, http.StatusOK, map[string]int64{"resolved": n})
}
