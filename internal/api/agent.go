package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/darshan-rambhia/fleetglint/internal/command"
	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// agentTokenHeader carries the machine credential on agent requests.
const agentTokenHeader = "X-API-Key"

func agentToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(agentTokenHeader))
}

// @Summary Submit a telemetry report
// @Description Validates the report, registers the machine on first contact, stores the report and updates alert state
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Machine credential"
// @Success 200 {object} ingest.Result
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 429 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /api/agent/report [post]
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	token := agentToken(r)
	if token == "" {
		writeError(w, r, model.ErrUnauthorized)
		return
	}
	body, err := readBody(w, r, maxReportBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.Ingest.Ingest(r.Context(), token, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// @Summary Poll for commands
// @Description Claims every pending command of the calling machine; claimed commands come back as executing and are never delivered again
// @Produce json
// @Param X-API-Key header string true "Machine credential"
// @Param hostname query string true "Machine hostname"
// @Success 200 {object} map[string]interface{} "commands"
// @Failure 401 {object} errorResponse
// @Router /api/agent/commands [get]
func (s *Server) handleAgentCommands(w http.ResponseWriter, r *http.Request) {
	token := agentToken(r)
	hostname := strings.TrimSpace(r.URL.Query().Get("hostname"))
	if token == "" {
		writeError(w, r, model.ErrUnauthorized)
		return
	}
	if hostname == "" {
		writeError(w, r, model.NewValidationError("hostname", "is required"))
		return
	}
	cmds, err := s.Commands.PollAndClaim(r.Context(), hostname, token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"commands": cmds})
}

// resultRequest is the body an agent posts when a command finishes.
type resultRequest struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Screenshot string `json:"screenshot"` // base64 PNG
}

// @Summary Report a command result
// @Description Completes or fails an executing command. A screenshot result is stored as an artifact
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Machine credential"
// @Param id path string true "Command ID"
// @Param body body resultRequest true "Command result"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /api/agent/commands/{id}/result [post]
func (s *Server) handleCommandResult(w http.ResponseWriter, r *http.Request) {
	token := agentToken(r)
	if token == "" {
		writeError(w, r, model.ErrUnauthorized)
		return
	}
	body, err := readBody(w, r, maxResultBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req resultRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, model.NewValidationError("body", "must be a valid JSON object"))
		return
	}
	res := command.Result{Success: req.Success, Output: req.Output}
	if req.Screenshot != "" {
		data, err := base64.StdEncoding.DecodeString(req.Screenshot)
		if err != nil {
			writeError(w, r, model.NewValidationError("screenshot", "must be base64"))
			return
		}
		res.Screenshot = data
	}

	c, err := s.Commands.ReportResult(r.Context(), r.PathValue("id"), token, res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "status": c.Status})
}
