package api

import (
	"net/http"

	"github.com/darshan-rambhia/fleetglint/internal/notify"
)

// @Summary Get notification settings
// @Description The notification configuration with the LINE token masked
// @Produce json
// @Success 200 {object} notify.MaskedConfig
// @Router /api/settings/notify [get]
func (s *Server) handleGetNotify(w http.ResponseWriter, r *http.Request) {
	c, err := s.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// @Summary Update notification settings
// @Description Applies only the fields present in the body. A blank token keeps the stored one
// @Accept json
// @Produce json
// @Param body body notify.ConfigPatch true "Fields to change"
// @Success 200 {object} notify.MaskedConfig
// @Failure 400 {object} errorResponse
// @Router /api/settings/notify [put]
func (s *Server) handlePutNotify(w http.ResponseWriter, r *http.Request) {
	var p notify.ConfigPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Settings.Update(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// @Summary Send a test notification
// @Description Sends a test message to every configured channel, ignoring the enabled flag and the cooldown
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /api/settings/notify/test [post]
func (s *Server) handleTestNotify(w http.ResponseWriter, r *http.Request) {
	if err := s.Notifier.Test(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true})
}
