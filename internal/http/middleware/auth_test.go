package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/models"
)

type staticAuth map[string]auth.Actor

func (s staticAuth) Authenticate(_ context.Context, token string) (auth.Actor, error) {
	if a, ok := s[token]; ok {
		return a, nil
	}
	return auth.Actor{}, errs.Unauthenticated("invalid or expired token")
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authn := staticAuth{
		"citizen": {ID: "u1", Role: models.RoleCitizen},
		"staff":   {ID: "u2", Role: models.RoleStaff, DepartmentID: "d1"},
	}
	r.GET("/staff", Authenticate(authn), RequireRoles(models.RoleStaff, models.RoleAdmin), func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateAndRoles(t *testing.T) {
	r := newRouter()

	w := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "missing bearer token", body["message"])

	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer nope").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer citizen").Code)

	w = do(r, "bearer staff")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u2"}`, w.Body.String())
}

func TestRequestIDEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDHeader)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), "req_")
}
