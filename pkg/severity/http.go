package severity

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/dataset"
	"github.com/fleming-ai/platform/pkg/storage"
	"github.com/gorilla/mux"
)

// Handler serves severity scores computed over each patient's latest cached
// feature row.
type Handler struct {
	features *storage.FeatureStore
}

func NewHandler(features *storage.FeatureStore) *Handler {
	return &Handler{features: features}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/patients/{id}/scores", h.handleGetScores).Methods(http.MethodGet)
	r.HandleFunc("/scores/sofa", h.handleComputeSOFA).Methods(http.MethodPost)
}

func (h *Handler) handleGetScores(w http.ResponseWriter, r *http.Request) {
	personID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}

	set, err := h.features.GetLatest(r.Context(), personID)
	if errors.Is(err, storage.ErrNotCached) {
		http.Error(w, "no features for patient", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to read cached features")
		http.Error(w, "failed to read features", http.StatusInternalServerError)
		return
	}

	row := dataset.FromFeatures(set.PersonID, set.Features)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"person_id": personID,
		"built_at":  set.BuiltAt,
		"saps_ii":   SAPSII(row),
		"igs_ii":    IGS2(row),
		"sofa":      SOFA(SOFAFromRow(row)),
	})
}

// handleComputeSOFA scores explicitly supplied values, for inputs the
// dataset does not track such as PaO2 and dopamine dosage.
func (h *Handler) handleComputeSOFA(w http.ResponseWriter, r *http.Request) {
	var in SOFAInputs
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sofa": SOFA(in)})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
