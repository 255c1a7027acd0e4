package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var captured string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		captured = Value(c)
		c.Status(http.StatusOK)
	})
	return r, &captured
}

func TestMiddlewareGeneratesID(t *testing.T) {
	r, captured := newRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), *captured)
}

func TestMiddlewareHonorsInboundID(t *testing.T) {
	r, captured := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "frontend-abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "frontend-abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "frontend-abc-123", *captured)
}

func TestMiddlewareReplacesOversizedID(t *testing.T) {
	r, _ := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxInboundLen+1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, got)
	assert.NotContains(t, got, "xxxx")
}
