package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"money42/internal/domain"
	"money42/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct{}

func (fakeAuth) Authenticate(_ context.Context, token string) (*utils.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &utils.Claims{UserID: "u1"}, nil
}

type fakeUsers map[string]*domain.User

func (f fakeUsers) UserByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := UserID(c)
		c.String(http.StatusOK, id)
	})
	r.GET("/", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(fakeAuth{}))

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer bad").Code)

	rec := do(r, "Bearer good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestAdminOnlyMiddleware(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Role: domain.RoleUser}}
	r := newRouter(JWTAuthMiddleware(fakeAuth{}), AdminOnlyMiddleware(users))
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer good").Code)

	users["u1"].Role = domain.RoleAdmin
	assert.Equal(t, http.StatusOK, do(r, "Bearer good").Code)
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	r := newRouter(JWTAuthMiddleware(fakeAuth{}), rl.Middleware())

	assert.Equal(t, http.StatusOK, do(r, "Bearer good").Code)
	assert.Equal(t, http.StatusOK, do(r, "Bearer good").Code)
	rec := do(r, "Bearer good")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_SweepDropsIdle(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	defer rl.Stop()
	rl.allow("a")

	rl.sweep(time.Now().Add(time.Minute))

	assert.Equal(t, 0, rl.Len())
}
