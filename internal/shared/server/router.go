package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sergey0107/verification-products/internal/services/health"
	"github.com/Sergey0107/verification-products/internal/shared/metrics"
	"github.com/Sergey0107/verification-products/internal/shared/server/middleware"
	"github.com/Sergey0107/verification-products/internal/shared/server/respond"
)

// RouteRegistrar attaches a feature's routes to the /api/v1 group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// NewRouter constructs the Gin engine with middleware, health, metrics and the given routes under /api/v1.
func NewRouter(healthSvc *health.Service, registrars ...RouteRegistrar) *gin.Engine {
	r := newEngine()
	mount(r.Group("/api/v1"), healthSvc, registrars)
	return r
}

// NewRootRouter mounts the routes at the root path, for internal services called by path.
func NewRootRouter(healthSvc *health.Service, registrars ...RouteRegistrar) *gin.Engine {
	r := newEngine()
	mount(&r.RouterGroup, healthSvc, registrars)
	return r
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)
	r.GET("/metrics", metrics.Handler())
	return r
}

func mount(rg *gin.RouterGroup, healthSvc *health.Service, registrars []RouteRegistrar) {
	rg.GET("/health", func(c *gin.Context) {
		status := healthSvc.Check(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	for _, reg := range registrars {
		reg.RegisterRoutes(rg)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
