package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rewards-service/internal/models"
	"rewards-service/internal/services"
	"rewards-service/pkg/token"
)

type stubAuth struct {
	users map[string]*models.User
	err   error
}

func (s stubAuth) Authenticate(_ context.Context, tokenStr string) (*models.User, *token.Claims, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	u, ok := s.users[tokenStr]
	if !ok {
		return nil, nil, services.ErrUnauthorized
	}
	return u, &token.Claims{UserID: u.ID, Role: u.Role}, nil
}

func newRouter(auth Authenticator, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()), Metrics())
	r.GET("/private", Auth(auth, "token"), RequireRole(roles...), func(c *gin.Context) {
		actor, _ := GetActor(c)
		_, hasClaims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role, "claims": hasClaims})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	auth := stubAuth{users: map[string]*models.User{
		"admin-token": {ID: 1, Role: models.RoleAdmin},
		"user-token":  {ID: 2, Role: models.RoleUser},
	}}
	r := newRouter(auth, models.RoleAdmin, models.RoleSupervisor)

	cases := []struct {
		name   string
		setup  func(req *http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"bearer admin", func(req *http.Request) { req.Header.Set("Authorization", "Bearer admin-token") }, http.StatusOK},
		{"cookie admin", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "token", Value: "admin-token"}) }, http.StatusOK},
		{"wrong role", func(req *http.Request) { req.Header.Set("Authorization", "bearer user-token") }, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tc.status == http.StatusOK {
				assert.Equal(t, models.RoleAdmin, body["role"])
				assert.Equal(t, true, body["claims"])
			} else {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestAuthMiddlewareInactiveAndFailure(t *testing.T) {
	req := func(r *gin.Engine) int {
		rq := httptest.NewRequest(http.MethodGet, "/private", nil)
		rq.Header.Set("Authorization", "Bearer anything")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, rq)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, req(newRouter(stubAuth{err: services.ErrUserInactive})))
	assert.Equal(t, http.StatusInternalServerError, req(newRouter(stubAuth{err: errors.New("db down")})))
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
