package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	Init("test-secret", time.Hour)
	tok, err := Sign("user-1", []string{RoleAdministrator})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.JTI)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	c, err := Verify(tok.Raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
	assert.Equal(t, tok.JTI, c.JWTID)
	assert.True(t, c.HasRole(RoleAdministrator))

	_, err = Verify(tok.Raw + "x")
	require.Error(t, err)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	Init("one", time.Hour)
	tok, err := Sign("u", nil)
	require.NoError(t, err)
	Init("two", time.Hour)
	_, err = Verify(tok.Raw)
	require.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NoError(t, CheckPassword(h, "hunter2"))
	require.Error(t, CheckPassword(h, "hunter3"))
}

func TestAuthenticateMiddleware(t *testing.T) {
	Init("mw-secret", time.Hour)
	tok, err := Sign("user-2", []string{"User"})
	require.NoError(t, err)

	var seen Claims
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	for _, tc := range []struct {
		name   string
		header string
		live   bool
		want   int
	}{
		{"missing", "", true, http.StatusUnauthorized},
		{"garbage", "Bearer nope", true, http.StatusUnauthorized},
		{"revoked", "Bearer " + tok.Raw, false, http.StatusUnauthorized},
		{"valid", "Bearer " + tok.Raw, true, http.StatusNoContent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			live := tc.live
			h := Authenticate(func(string) bool { return live })(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
	assert.Equal(t, "user-2", seen.Subject)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(RoleAdministrator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), Claims{Roles: []string{RoleAdministrator}}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, IsAdmin(req.Context()))
}

func TestValidatePassword(t *testing.T) {
	require.Error(t, ValidatePassword("short"))
	require.NoError(t, ValidatePassword("long enough"))
	require.Error(t, ValidatePassword(string(make([]byte, 73))))
}
