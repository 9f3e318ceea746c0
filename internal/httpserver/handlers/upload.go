package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"rbfvault/internal/imageio"
	"rbfvault/internal/services/scramble"
)

// maxRounds caps the per-request round override.
const maxRounds = 64

var errMissingField = errors.New("missing form field")

func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return r.ParseMultipartForm(maxBytes)
}

// formImage decodes the image uploaded under field, refusing images larger
// than maxPixels before their pixel buffers are allocated.
func formImage(r *http.Request, field string, maxPixels int64) (*scramble.Image, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("%w: %s", errMissingField, field)
		}
		return nil, err
	}
	defer f.Close()
	img, _, err := imageio.DecodeLimited(f, maxPixels)
	return img, err
}

// formBytes reads an optional file field; ok is false when absent.
func formBytes(r *http.Request, field string) ([]byte, bool, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	return b, true, err
}

// roundsParam reads the optional "rounds" form value.
func roundsParam(r *http.Request, def int) (int, error) {
	s := strings.TrimSpace(r.FormValue("rounds"))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > maxRounds {
		return 0, fmt.Errorf("rounds must be an integer between 0 and %d", maxRounds)
	}
	return n, nil
}

func writePNG(w http.ResponseWriter, img *scramble.Image) error {
	w.Header().Set("Content-Type", "image/png")
	return imageio.Encode(w, img)
}
