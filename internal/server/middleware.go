package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/trailbook/internal/auth/domain"
	checkoutdomain "github.com/smallbiznis/trailbook/internal/checkout/domain"
	obscontext "github.com/smallbiznis/trailbook/internal/observability/context"
	"go.uber.org/zap"
)

const contextAdminUserKey = "admin_user"

// CORS answers preflight requests and echoes allowed origins. A "*" entry
// allows any origin.
func CORS(allowed []string) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
			continue
		}
		if origin != "" {
			origins[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := origins[origin]
			if allowAll || ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,Idempotency-Key,X-Request-ID")
				c.Header("Access-Control-Max-Age", "600")
				c.Header("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// AdminAuthRequired checks HTTP basic credentials against the admin users.
func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok || strings.TrimSpace(username) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "admin", user.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextAdminUserKey, user)
		c.Next()
	}
}

// CreateOrderRateLimit throttles order creation per client address. The
// limiter fails open when Redis is unreachable.
func (s *Server) CreateOrderRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.checkoutLimiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.checkoutLimiter.AllowCreateOrder(c.Request.Context(), c.ClientIP())
		if err != nil {
			s.log.Warn("create order rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			}
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "create_order")
			}
			AbortWithError(c, checkoutdomain.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func adminFromContext(c *gin.Context) (authdomain.AdminUser, bool) {
	value, ok := c.Get(contextAdminUserKey)
	if !ok {
		return authdomain.AdminUser{}, false
	}
	user, ok := value.(authdomain.AdminUser)
	return user, ok
}
