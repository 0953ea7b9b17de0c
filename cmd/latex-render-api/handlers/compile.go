package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/luisedmundo354/latex-render-api/internal/compile"
	"github.com/luisedmundo354/latex-render-api/internal/observability"
	"github.com/luisedmundo354/latex-render-api/internal/storage"
)

// CompileHandler turns uploaded archives into PDF responses.
type CompileHandler struct {
	logger   *observability.Logger
	store    *storage.Client
	compiler *compile.Compiler
}

// NewCompileHandler creates a new compile handler. store is nil when the
// object store is not configured; requests then fail with a 500.
func NewCompileHandler(logger *observability.Logger, store *storage.Client, compiler *compile.Compiler) *CompileHandler {
	return &CompileHandler{
		logger:   logger,
		store:    store,
		compiler: compiler,
	}
}

// CompileRequestDTO is the API request for a compile job. DeleteAfter
// defaults to true when the field is absent.
type CompileRequestDTO struct {
	Key         string `json:"key"`
	DeleteAfter *bool  `json:"delete_after,omitempty"`
}

// Compile handles POST /compile.
func (h *CompileHandler) Compile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	var reqDTO CompileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Reject keys outside the upload namespace before touching storage.
	if err := storage.ValidateUploadKey(reqDTO.Key); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store == nil {
		h.writeError(w, http.StatusInternalServerError, "storage not configured")
		return
	}

	deleteAfter := true
	if reqDTO.DeleteAfter != nil {
		deleteAfter = *reqDTO.DeleteAfter
	}

	// The upload is consumed whether or not the compile succeeds. Cleanup
	// survives the request deadline and never fails the request.
	if deleteAfter {
		defer func() {
			if err := h.store.Delete(context.WithoutCancel(ctx), reqDTO.Key); err != nil {
				log.Warn().Err(err).Str("key", reqDTO.Key).Msg("Failed to delete upload")
			}
		}()
	}

	log.Info().
		Str("key", reqDTO.Key).
		Bool("delete_after", deleteAfter).
		Msg("Starting compile request")

	archive, err := h.store.Fetch(ctx, reqDTO.Key)
	if err != nil {
		log.Error().Err(err).Str("key", reqDTO.Key).Msg("Fetch failed")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.compiler.Compile(ctx, compile.Request{Archive: archive})
	if err != nil {
		log.Error().Err(err).Str("key", reqDTO.Key).Msg("Compile failed")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().
		Str("key", reqDTO.Key).
		Str("root", result.RootPath).
		Str("driver", result.Driver).
		Int("pages", result.PageCount).
		Dur("duration", result.Duration).
		Msg("Compile request succeeded")

	w.Header().Set("Content-Type", "application/pdf")
	if result.PageCount > 0 {
		w.Header().Set("X-Pdf-Pages", strconv.Itoa(result.PageCount))
	}
	w.Write(result.PDF)
}

func (h *CompileHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
