package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/C4rlos-asx/IA-con-recuerdos/internal/app"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/util"
	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/ai"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// writeAppError maps application errors onto the wire taxonomy. Anything
// unrecognized is an internal error; its detail is logged, not returned.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var provErr *ai.ProviderError
	switch {
	case errors.Is(err, app.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, app.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Demasiadas solicitudes. Inténtalo de nuevo en un momento.")
	case errors.Is(err, app.ErrProviderNotConfigured):
		writeError(w, http.StatusInternalServerError, "provider_not_configured", err.Error())
	case errors.As(err, &provErr):
		writeError(w, http.StatusInternalServerError, "provider_error", provErr.Message)
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "El recurso no existe o no pertenece a este usuario.")
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"requestId", util.RequestIDFromRequest(r),
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor.")
	}
}

// decodeJSON rejects malformed and unexpected bodies uniformly.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", app.ErrInvalidRequest)
	}
	return nil
}
