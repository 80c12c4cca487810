package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// machineDetail is a machine with its newest report and unresolved alerts.
type machineDetail struct {
	*model.Machine
	LatestReport *model.Report `json:"latest_report"`
	Alerts       []model.Alert `json:"alerts"`
}

// @Summary List machines
// @Description Every registered machine with its live status
// @Produce json
// @Success 200 {array} model.Machine
// @Router /api/machines [get]
func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Registry.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ms)
}

// @Summary Get a machine
// @Description One machine with its newest report and unresolved alerts
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} machineDetail
// @Failure 404 {object} errorResponse
// @Router /api/machines/{id} [get]
func (s *Server) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.Registry.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := machineDetail{Machine: m}
	switch latest, err := s.Store.LatestReport(ctx, m.ID); {
	case err == nil:
		out.LatestReport = latest
	case !errors.Is(err, model.ErrNotFound):
		writeError(w, r, model.Transient("loading latest report", err))
		return
	}
	if out.Alerts, err = s.Store.ActiveAlerts(ctx, m.ID); err != nil {
		writeError(w, r, model.Transient("loading alerts", err))
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

// @Summary Delete a machine
// @Description Removes the machine with its reports, alerts, thresholds, commands and screenshots
// @Param id path string true "Machine ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /api/machines/{id} [delete]
func (s *Server) handleDeleteMachine(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Registry.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.Cache.Remove(id)
	s.Commands.RemoveMachineArtifacts(id)
	slog.Info("machine deleted", "machine", id)
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Rotate a machine token
// @Description Issues a new credential; the old one stops working immediately. The token is only shown once
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errorResponse
// @Router /api/machines/{id}/token [post]
func (s *Server) handleRotateToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	token, err := s.Registry.RotateToken(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("machine token rotated", "machine", id)
	writeJSON(w, r, http.StatusOK, map[string]string{"machine_id": id, "token": token})
}

// @Summary Report history
// @Description A machine's reports from the last N hours, oldest first
// @Produce json
// @Param id path string true "Machine ID"
// @Param hours query int false "Hours of history (1-24)" default(24)
// @Success 200 {array} model.Report
// @Failure 404 {object} errorResponse
// @Router /api/machines/{id}/reports [get]
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.Registry.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	hours := queryInt(r, "hours", 24)
	if hours < 1 || hours > 24 {
		hours = 24
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	reports, err := s.Store.ListReports(ctx, m.ID, since, 0)
	if err != nil {
		writeError(w, r, model.Transient("listing reports", err))
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	writeJSON(w, r, http.StatusOK, reports)
}

// thresholdsResponse adds whether the values are a stored override.
type thresholdsResponse struct {
	model.AlertThreshold
	Custom bool `json:"custom"`
}

// @Summary Get alert thresholds
// @Description A machine's thresholds, or the defaults when it has no override
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} thresholdsResponse
// @Failure 404 {object} errorResponse
// @Router /api/machines/{id}/thresholds [get]
func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := s.Registry.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	th, custom, err := s.Registry.Thresholds(ctx, m.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, thresholdsResponse{AlertThreshold: th, Custom: custom})
}

// thresholdsRequest is a threshold override. Absent fields take the defaults.
type thresholdsRequest struct {
	CPUThreshold   *float64 `json:"cpu_threshold"`
	RAMThreshold   *float64 `json:"ram_threshold"`
	DiskThreshold  *float64 `json:"disk_threshold"`
	EventLogErrors *bool    `json:"event_log_errors"`
}

// @Summary Set alert thresholds
// @Description Stores a threshold override; it applies from the machine's next report
// @Accept json
// @Produce json
// @Param id path string true "Machine ID"
// @Param body body thresholdsRequest true "Thresholds"
// @Success 200 {object} thresholdsResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/machines/{id}/thresholds [put]
func (s *Server) handlePutThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	th := model.DefaultThreshold()
	th.MachineID = r.PathValue("id")
	if req.CPUThreshold != nil {
		th.CPUThreshold = *req.CPUThreshold
	}
	if req.RAMThreshold != nil {
		th.RAMThreshold = *req.RAMThreshold
	}
	if req.DiskThreshold != nil {
		th.DiskThreshold = *req.DiskThreshold
	}
	if req.EventLogErrors != nil {
		th.EventLogErrors = *req.EventLogErrors
	}
	saved, err := s.Registry.SetThresholds(r.Context(), th)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, thresholdsResponse{AlertThreshold: saved, Custom: true})
}
