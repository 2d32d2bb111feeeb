package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradeops/backoffice/internal/infrastructure/logger"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
)

const (
	// TenantIDKey is the gin context key holding the tenant ID
	TenantIDKey = "tenant_id"
	// TenantHeaderKey is the header carrying the tenant ID
	TenantHeaderKey = "X-Tenant-ID"
	// ActorIDKey is the gin context key holding the acting user ID
	ActorIDKey = "actor_id"
	// ActorHeaderKey is the header carrying the acting user ID
	ActorHeaderKey = "X-User-ID"
)

// TenantConfig holds tenant middleware configuration
type TenantConfig struct {
	// SkipPaths are paths served without tenant context (health checks)
	SkipPaths []string
}

// DefaultTenantConfig returns the default tenant middleware configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// Tenant extracts the tenant and actor identity from request headers and
// stores them on the gin context and the request context. Every ledger
// operation is tenant-scoped, so requests without a valid tenant are rejected
// before reaching a handler.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		raw := c.GetHeader(TenantHeaderKey)
		if raw == "" {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Missing "+TenantHeaderKey+" header")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid "+TenantHeaderKey+" header")
			return
		}

		c.Set(TenantIDKey, tenantID)
		if actor := c.GetHeader(ActorHeaderKey); actor != "" {
			if actorID, err := uuid.Parse(actor); err == nil {
				c.Set(ActorIDKey, actorID)
			}
		}

		// Make the tenant visible to context-aware loggers downstream.
		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetTenantID returns the tenant ID set by the Tenant middleware
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// GetActorID returns the acting user ID set by the Tenant middleware
func GetActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ActorIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
