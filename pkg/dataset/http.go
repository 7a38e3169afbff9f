package dataset

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/fleming-ai/platform/pkg/storage"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/datasets/builds", h.handleCreateBuild).Methods(http.MethodPost)
	r.HandleFunc("/datasets/builds", h.handleListBuilds).Methods(http.MethodGet)
	r.HandleFunc("/datasets/builds/{id}", h.handleGetBuild).Methods(http.MethodGet)
}

func (h *Handler) handleCreateBuild(w http.ResponseWriter, r *http.Request) {
	var req models.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if len(req.PatientIDs) == 0 {
		http.Error(w, "patient_ids is required", http.StatusBadRequest)
		return
	}
	run, err := h.runner.Enqueue(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to enqueue dataset build")
		http.Error(w, "failed to enqueue build", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"run": run})
}

func (h *Handler) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	runs, err := h.runner.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list dataset builds")
		http.Error(w, "failed to list builds", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": runs})
}

func (h *Handler) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	run, err := h.runner.Get(r.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get dataset build")
		http.Error(w, "failed to get build", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"run": run})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
