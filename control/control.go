// Package control implements the admin control-plane endpoint of spec.md
// §6: a single POST route that triggers a full cache refresh, optionally
// gated by a bearer token. Adapted from the original's refresh_cache_handler
// (axum + an Arc<ControlState>) into a plain net/http.Handler.
package control

import (
	"net/http"

	"github.com/cacheproxy/cacheproxy"
)

// Handler serves the control endpoint. AuthToken, when non-empty, must match
// the bearer token on every request; an empty AuthToken disables the check.
type Handler struct {
	Trigger   cacheproxy.RefreshTrigger
	AuthToken string
}

// NewHandler builds a control Handler bound to trigger. authToken may be
// empty to accept unauthenticated requests.
func NewHandler(trigger cacheproxy.RefreshTrigger, authToken string) *Handler {
	return &Handler{Trigger: trigger, AuthToken: authToken}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.AuthToken != "" {
		expected := "Bearer " + h.AuthToken
		if r.Header.Get("Authorization") != expected {
			cacheproxy.GetLogger().Warn("unauthorized refresh-cache attempt")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	h.Trigger.Trigger()
	cacheproxy.GetLogger().Info("cache refresh triggered via control endpoint")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("cache refresh triggered"))
}
