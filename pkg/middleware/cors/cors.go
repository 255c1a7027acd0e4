package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// New returns a CORS middleware for the browser frontends. An empty origin
// list means every origin is allowed, which is the local development default.
// Credentials are always allowed because the frontends send the session token
// in the Authorization header.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := buildMatcher(allowedOrigins)

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		if origin != "" && allowed(origin) {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
				header.Set("Access-Control-Allow-Headers", requested)
			} else {
				header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			}
			header.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func buildMatcher(origins []string) func(string) bool {
	if len(origins) == 0 {
		return func(string) bool { return true }
	}

	set := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		set[normalize(origin)] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := set[normalize(origin)]
		return ok
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
