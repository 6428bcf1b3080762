package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Tyrowin/potatoserver/internal/settings"
)

// SettingsStore is the persistence the settings API needs. *settings.Store
// satisfies it.
type SettingsStore interface {
	List(ctx context.Context) ([]settings.EnvSetting, error)
	Get(ctx context.Context, key string) (settings.EnvSetting, error)
	Set(ctx context.Context, key, value string) (settings.EnvSetting, error)
	Delete(ctx context.Context, key string) error
}

// SettingsResponse is the body of GET /api/settings.
type SettingsResponse struct {
	Settings []settings.EnvSetting `json:"settings"`
}

type setSettingRequest struct {
	Value *string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.settings.List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if all == nil {
		all = []settings.EnvSetting{}
	}
	s.writeJSON(w, http.StatusOK, SettingsResponse{Settings: all})
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := s.settings.Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, setting)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var req setSettingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be JSON like {\"value\": \"...\"}"})
		return
	}
	if req.Value == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing \"value\" field"})
		return
	}

	setting, err := s.settings.Set(r.Context(), mux.Vars(r)["key"], *req.Value)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, setting)
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.settings.Delete(r.Context(), mux.Vars(r)["key"]); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settings.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, settings.ErrInvalidKey):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.log.Error("settings store error", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("error encoding JSON response", zap.Error(err))
	}
}
