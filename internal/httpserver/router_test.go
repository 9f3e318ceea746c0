package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rbfvault/internal/httpserver/handlers"
	"rbfvault/internal/services/vault"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	s, err := vault.NewFromHex("CAMELLIA", "000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	return NewRouter(nil, zap.NewNop().Sugar(), handlers.ImageDeps{Sealer: s, DefaultRounds: 3, MaxUploadBytes: 1 << 20})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCiphersArePublic(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ciphers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Active string `json:"active"`
		Count  int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CAMELLIA", body.Active)
	assert.Equal(t, 4, body.Count)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := testRouter(t)
	for _, rt := range []struct{ method, path string }{
		{http.MethodPost, "/v1/images/encode"},
		{http.MethodPost, "/v1/images/decode"},
		{http.MethodPost, "/v1/images/analyze"},
		{http.MethodGet, "/v1/schedules"},
		{http.MethodGet, "/v1/jobs"},
		{http.MethodGet, "/v1/admin/users"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(rt.method, rt.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rt.path)
	}
}
