package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"rbfvault/internal/imageio"
	"rbfvault/internal/services/analysis"
	"rbfvault/internal/services/scramble"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondError maps engine and I/O errors onto status codes. Unknown
// errors are logged and reported as 500.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, scramble.ErrPrecondition), errors.Is(err, analysis.ErrSizeMismatch):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, imageio.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.As(err, &maxErr):
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, imageio.ErrImageTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		lg.Errorw("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
