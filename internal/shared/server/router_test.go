package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Sergey0107/verification-products/internal/services/health"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func TestRouterServesHealthMetricsAndRoutes(t *testing.T) {
	r := NewRouter(health.NewService(nil), pingRoutes{})

	for path, want := range map[string]int{
		"/api/v1/health": http.StatusOK,
		"/metrics":       http.StatusOK,
		"/api/v1/ping":   http.StatusOK,
		"/api/v1/nope":   http.StatusNotFound,
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.Code)
		}
	}
}

func TestRootRouter(t *testing.T) {
	r := NewRootRouter(nil, pingRoutes{})
	for path, want := range map[string]int{
		"/health":        http.StatusOK,
		"/ping":          http.StatusOK,
		"/api/v1/health": http.StatusNotFound,
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.Code)
		}
	}
}

func TestAddr(t *testing.T) {
	tests := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range tests {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
