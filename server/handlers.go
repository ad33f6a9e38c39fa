package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/poiesic/dossier/dataset"
)

const (
	msgInitializationFailed = "Initialization failed"
	msgNotInitialized       = "System not initialized"
	msgNoQuestion           = "No question provided"
	msgUnknownDataset       = "Unknown dataset"
)

type initializeResponse struct {
	Success bool           `json:"success"`
	Stats   *dataset.Stats `json:"stats,omitempty"`
	Message string         `json:"message,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Success  bool   `json:"success"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Error    string `json:"error,omitempty"`
}

type statsResponse struct {
	Success bool          `json:"success"`
	Dataset string        `json:"dataset"`
	State   dataset.State `json:"state"`
	Reason  string        `json:"reason,omitempty"`
	Stats   dataset.Stats `json:"stats"`
}

type datasetInfo struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Domain string        `json:"domain"`
	Ready  bool          `json:"ready"`
	State  dataset.State `json:"state"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("datasetId")
	stats, err := s.manager.Initialize(r.Context(), id)
	if err != nil {
		s.logger.Error("initialization failed", "dataset", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, initializeResponse{Message: msgInitializationFailed})
		return
	}
	writeJSON(w, http.StatusOK, initializeResponse{Success: true, Stats: &stats})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("datasetId")

	// an unreadable body counts as no question; readiness is reported first
	var req askRequest
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req)

	answer, err := s.dispatcher.Ask(r.Context(), id, req.Question)
	switch {
	case err == nil:
	case errors.Is(err, dataset.ErrNotInitialized):
		writeJSON(w, http.StatusBadRequest, askResponse{Error: msgNotInitialized})
		return
	case errors.Is(err, dataset.ErrEmptyQuestion):
		writeJSON(w, http.StatusBadRequest, askResponse{Error: msgNoQuestion})
		return
	default:
		writeJSON(w, http.StatusInternalServerError, askResponse{Error: dataset.Cause(err).Error()})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Success:  true,
		Question: strings.TrimSpace(req.Question),
		Answer:   answer,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("datasetId")
	state, reason := s.manager.Status(id)
	if errors.Is(reason, dataset.ErrConfigNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msgUnknownDataset})
		return
	}

	resp := statsResponse{
		Success: true,
		Dataset: id,
		State:   state,
		Stats:   s.manager.Stats(id),
	}
	if reason != nil {
		resp.Reason = dataset.Cause(reason).Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	configs := s.manager.Registry().Configs()
	infos := make([]datasetInfo, len(configs))
	for i, cfg := range configs {
		state, _ := s.manager.Status(cfg.ID)
		infos[i] = datasetInfo{
			ID:     cfg.ID,
			Name:   cfg.Name,
			Domain: cfg.Domain,
			Ready:  state == dataset.StateReady,
			State:  state,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "datasets": infos})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
