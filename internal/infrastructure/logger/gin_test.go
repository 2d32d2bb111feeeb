package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddlewareLogsIdentityFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	observed := zap.New(core)

	engine := gin.New()
	engine.Use(GinMiddleware(observed))
	// Identity middlewares run after the logging middleware and replace
	// the request context; the completion log must still see their ids.
	engine.Use(func(c *gin.Context) {
		ctx, _ := WithRequestID(c.Request.Context(), FromContext(c.Request.Context()), "req-42")
		ctx, _ = WithTenantID(ctx, FromContext(ctx), "tenant-7")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	engine.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	engine.ServeHTTP(w, req)

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "tenant-7", fields["tenant_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestGinMiddlewareAttachesContextLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(GinMiddleware(zap.NewNop()))

	var sawContextLogger bool
	engine.GET("/ping", func(c *gin.Context) {
		sawContextLogger = FromContext(c.Request.Context()) == GetGinLogger(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.True(t, sawContextLogger, "handlers should see the same request logger via context and gin keys")
}
