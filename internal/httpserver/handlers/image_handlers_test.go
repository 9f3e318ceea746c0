package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rbfvault/internal/imageio"
	"rbfvault/internal/services/scramble"
)

func makeTestImage(w, h int) *scramble.Image {
	img := scramble.NewImage(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(y, x, 0, uint8((x*17)^(y*31)))
			img.Set(y, x, 1, uint8((x*43)+(y*13)))
			img.Set(y, x, 2, uint8((x*7)^(y*11)))
		}
	}
	return img
}

func multipartImages(t *testing.T, files map[string]*scramble.Image) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, img := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		require.NoError(t, imageio.Encode(fw, img))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestAnalyzeImages(t *testing.T) {
	src := makeTestImage(16, 16)
	e := scramble.New(scramble.WithRand(rand.New(rand.NewSource(1))))
	enc, sched, err := e.Encode(src)
	require.NoError(t, err)
	dec, err := e.Decode(enc, sched)
	require.NoError(t, err)

	body, ct := multipartImages(t, map[string]*scramble.Image{"original": src, "encrypted": enc, "decrypted": dec})
	req := httptest.NewRequest(http.MethodPost, "/v1/images/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	AnalyzeImages(zap.NewNop().Sugar(), 8<<20, 1<<20)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "inf", rep["psnr_original_decrypted"])
	_, ok := rep["psnr_original_encrypted"].(float64)
	assert.True(t, ok)
}

func TestAnalyzeImagesErrors(t *testing.T) {
	lg := zap.NewNop().Sugar()

	body, ct := multipartImages(t, map[string]*scramble.Image{"original": makeTestImage(4, 4)})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	AnalyzeImages(lg, 8<<20, 1<<20)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartImages(t, map[string]*scramble.Image{"original": makeTestImage(4, 4), "encrypted": makeTestImage(5, 4)})
	req = httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	AnalyzeImages(lg, 8<<20, 1<<20)(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	AnalyzeImages(lg, 8<<20, 1<<20)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeImagesPixelLimit(t *testing.T) {
	body, ct := multipartImages(t, map[string]*scramble.Image{"original": makeTestImage(40, 30), "encrypted": makeTestImage(40, 30)})
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	AnalyzeImages(zap.NewNop().Sugar(), 8<<20, 40*30-1)(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "image dimensions exceed limit")
}

func TestRoundsParam(t *testing.T) {
	for _, tc := range []struct {
		val     string
		want    int
		wantErr bool
	}{
		{"", 3, false},
		{"0", 0, false},
		{"7", 7, false},
		{"-1", 0, true},
		{"65", 0, true},
		{"x", 0, true},
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"rounds": {tc.val}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		got, err := roundsParam(req, 3)
		if tc.wantErr {
			assert.Error(t, err, tc.val)
			continue
		}
		require.NoError(t, err, tc.val)
		assert.Equal(t, tc.want, got)
	}
}

func TestRespondErrorMapping(t *testing.T) {
	lg := zap.NewNop().Sugar()
	for _, tc := range []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", scramble.ErrPrecondition), http.StatusUnprocessableEntity},
		{imageio.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("decode: %w", imageio.ErrImageTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	} {
		rec := httptest.NewRecorder()
		respondError(rec, lg, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}
