// Package handlers provides HTTP handlers for the LaTeX Render API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/luisedmundo354/latex-render-api/internal/observability"
	"github.com/luisedmundo354/latex-render-api/internal/storage"
)

// PresignHandler allocates upload slots in the object store.
type PresignHandler struct {
	logger *observability.Logger
	store  *storage.Client
	expiry time.Duration
}

// NewPresignHandler creates a new presign handler. store is nil when the
// object store is not configured; requests then fail with a 500.
func NewPresignHandler(logger *observability.Logger, store *storage.Client, expiry time.Duration) *PresignHandler {
	return &PresignHandler{
		logger: logger,
		store:  store,
		expiry: expiry,
	}
}

// PresignResponseDTO is the API response for an allocated upload slot.
type PresignResponseDTO struct {
	Key       string `json:"key"`
	PutURL    string `json:"put_url"`
	ExpiresIn int    `json:"expires_in"`
}

// Presign handles POST /presign.
func (h *PresignHandler) Presign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	if h.store == nil {
		h.writeError(w, http.StatusInternalServerError, "storage not configured")
		return
	}

	key := storage.NewUploadKey(time.Now())

	putURL, err := h.store.PresignPut(ctx, key, "application/zip", h.expiry)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Presign failed")
		h.writeError(w, http.StatusInternalServerError, "presign failed")
		return
	}

	log.Info().
		Str("key", key).
		Int("expires_in", int(h.expiry.Seconds())).
		Msg("Allocated upload slot")

	resp := PresignResponseDTO{
		Key:       key,
		PutURL:    putURL,
		ExpiresIn: int(h.expiry.Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *PresignHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
