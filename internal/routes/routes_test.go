package routes

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/securecontrol/backend/internal/middleware"
)

// Handler methods are bound but never invoked here, so zero-value
// handlers are enough to exercise route registration.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Register(router, Handlers{}, middleware.NewRateLimiter(10, 5, 20, 5))
	return router
}

func TestRegisterExposesPasswordRoutes(t *testing.T) {
	router := newTestRouter(t)

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	assert.True(t, registered["POST /api/auth/forgot-password"])
	assert.True(t, registered["POST /api/auth/reset-password"])
	assert.True(t, registered["POST /api/auth/change-password"])
}

func TestRegisterExposesCoreRoutes(t *testing.T) {
	router := newTestRouter(t)

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"POST /api/auth/login",
		"POST /api/auth/verify-mfa",
		"POST /api/transactions",
		"POST /api/transactions/analyze",
		"POST /api/transactions/:id/approve",
		"POST /api/transactions/:id/reject",
		"GET /api/audit/logs",
	} {
		assert.True(t, registered[want], want)
	}
}
