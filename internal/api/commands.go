package api

import (
	"encoding/json"
	"net/http"

	"github.com/darshan-rambhia/fleetglint/internal/model"
)

const maxCommandList = 50

type createCommandRequest struct {
	MachineID string          `json:"machine_id"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// @Summary Queue a command
// @Description Creates a pending command; the machine picks it up on its next poll
// @Accept json
// @Produce json
// @Param body body createCommandRequest true "Command"
// @Success 201 {object} model.Command
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/commands [post]
func (s *Server) handleCreateCommand(w http.ResponseWriter, r *http.Request) {
	var req createCommandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Commands.Create(r.Context(), req.MachineID, req.Action, req.Params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

// @Summary List commands
// @Description Newest commands first, at most 50
// @Produce json
// @Param machine_id query string false "Filter by machine"
// @Param status query string false "pending, executing, completed or failed"
// @Success 200 {array} model.Command
// @Failure 400 {object} errorResponse
// @Router /api/commands [get]
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := model.CommandStatus(q.Get("status"))
	switch status {
	case "", model.CommandPending, model.CommandExecuting, model.CommandCompleted, model.CommandFailed:
	default:
		writeError(w, r, model.NewValidationError("status", "must be pending, executing, completed or failed"))
		return
	}
	cmds, err := s.Commands.List(r.Context(), q.Get("machine_id"), status, maxCommandList)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cmds)
}

// @Summary List screenshots
// @Description A machine's screenshots, newest first
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {array} model.Screenshot
// @Router /api/machines/{id}/screenshots [get]
func (s *Server) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	shots, err := s.Commands.Screenshots(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if shots == nil {
		shots = []model.Screenshot{}
	}
	writeJSON(w, r, http.StatusOK, shots)
}

// @Summary Delete all screenshots of a machine
// @Produce json
// @Param id path string true "Machine ID"
// @Success 200 {object} map[string]int
// @Router /api/machines/{id}/screenshots [delete]
func (s *Server) handleDeleteScreenshots(w http.ResponseWriter, r *http.Request) {
	n, err := s.Commands.DeleteScreenshots(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"deleted": n})
}

// @Summary Get a screenshot image
// @Produce png
// @Param id path string true "Screenshot ID"
// @Success 200 {file} binary
// @Failure 404 {object} errorResponse
// @Router /api/screenshots/{id} [get]
func (s *Server) handleGetScreenshot(w http.ResponseWriter, r *http.Request) {
	_, path, err := s.Commands.OpenScreenshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

// @Summary Delete a screenshot
// @Param id path string true "Screenshot ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /api/screenshots/{id} [delete]
func (s *Server) handleDeleteScreenshot(w http.ResponseWriter, r *http.Request) {
	if err := s.Commands.DeleteScreenshot(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
