package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonasqin/automedia-ai/pkg/generation"
	"github.com/jonasqin/automedia-ai/pkg/orchestrator"
)

// userIDHeader carries the authenticated caller identity, set by the
// platform gateway.
const userIDHeader = "X-User-ID"

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return
	}

	var req orchestrator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.svc.Generate(r.Context(), userID, req)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}

	resp := map[string]any{
		"generation_id": res.GenerationID,
		"content":       res.Content,
		"metadata":      res.Metadata,
		"tokens":        res.Tokens,
		"cost":          res.Cost,
	}
	if res.PersistenceErr != nil {
		// The generation succeeded; report the bookkeeping failure
		// out-of-band rather than failing the response.
		resp["warning"] = res.PersistenceErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	snap, err := s.svc.GetStats(r.Context(), userID)
	if err != nil {
		var verr *generation.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("stats lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	var (
		verr        *generation.ValidationError
		denied      *generation.AgentAccessDeniedError
		unavailable *generation.ProviderUnavailableError
		provider    *generation.ProviderError
		persistence *generation.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, denied.Error())
	case errors.As(err, &unavailable):
		writeError(w, http.StatusServiceUnavailable, unavailable.Error())
	case errors.As(err, &provider):
		writeError(w, http.StatusBadGateway, provider.Error())
	case errors.As(err, &persistence):
		s.logger.Error("generation persistence failure", "error", err)
		writeError(w, http.StatusInternalServerError, "datastore unavailable")
	default:
		s.logger.Error("generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
