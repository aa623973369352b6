package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func identityRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TrustedIdentity())
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-User", UserIDFromContext(r.Context()))
		w.Header().Set("X-Seen-Role", RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	r.With(RequireUser()).Post("/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	r.With(RequireRole(RoleAdmin)).Delete("/admin/technologies/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func doIdentity(r http.Handler, method, path, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTrustedIdentity_CopiesHeaders(t *testing.T) {
	rec := doIdentity(identityRouter(), http.MethodGet, "/whoami", " educator-1 ", "Admin")

	assert.Equal(t, "educator-1", rec.Header().Get("X-Seen-User"))
	assert.Equal(t, "admin", rec.Header().Get("X-Seen-Role"))
}

func TestTrustedIdentity_Anonymous(t *testing.T) {
	rec := doIdentity(identityRouter(), http.MethodGet, "/whoami", "", "admin")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Seen-User"))
	assert.Empty(t, rec.Header().Get("X-Seen-Role"), "a role without a user is ignored")
}

func TestRequireUser(t *testing.T) {
	r := identityRouter()

	assert.Equal(t, http.StatusUnauthorized, doIdentity(r, http.MethodPost, "/reviews", "", "").Code)
	assert.Equal(t, http.StatusCreated, doIdentity(r, http.MethodPost, "/reviews", "educator-1", "").Code)
}

func TestRequireRole(t *testing.T) {
	r := identityRouter()

	anon := doIdentity(r, http.MethodDelete, "/admin/technologies/t-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	educator := doIdentity(r, http.MethodDelete, "/admin/technologies/t-1", "educator-1", "educator")
	assert.Equal(t, http.StatusForbidden, educator.Code)
	assert.Contains(t, educator.Body.String(), "FORBIDDEN")

	admin := doIdentity(r, http.MethodDelete, "/admin/technologies/t-1", "admin-1", "admin")
	assert.Equal(t, http.StatusNoContent, admin.Code)
}
