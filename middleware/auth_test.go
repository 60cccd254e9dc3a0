package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	VerifyTokenFn func(token string) (jwt.MapClaims, error)
}

func (f fakeVerifier) VerifyToken(token string) (jwt.MapClaims, error) {
	return f.VerifyTokenFn(token)
}

func acceptOnly(good string) fakeVerifier {
	return fakeVerifier{VerifyTokenFn: func(token string) (jwt.MapClaims, error) {
		if token != good {
			return nil, errors.New("bad token")
		}
		return jwt.MapClaims{"role": "admin"}, nil
	}}
}

func TestRequireAdmin(t *testing.T) {
	var gotClaims jwt.MapClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := AdminClaimsFromContext(r.Context())
		require.NoError(t, err)
		gotClaims = claims
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAdmin(acceptOnly("good"))(next)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusNoContent},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"}) }, http.StatusNoContent},
		{"bad bearer beats good cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer bad")
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
		}, http.StatusUnauthorized},
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest(http.MethodGet, "/api/admin/teams", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, "admin", gotClaims["role"])
			} else {
				assert.Nil(t, gotClaims)
				assert.JSONEq(t, `{"error":"admin authentication required"}`, rec.Body.String())
			}
		})
	}
}

func TestRequireAdminPageRedirects(t *testing.T) {
	h := RequireAdminPage(acceptOnly("good"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/report", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminClaimsFromContextMissing(t *testing.T) {
	_, err := AdminClaimsFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Error(t, err)
}
