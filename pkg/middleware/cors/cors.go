package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// New returns a CORS middleware restricted to the configured origins. An
// empty list allows any origin.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := newAllowlist(allowedOrigins)

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if origin := c.GetHeader("Origin"); origin != "" {
			if allowed.contains(origin) {
				header.Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowed.open() {
			header.Set("Access-Control-Allow-Origin", "*")
		}

		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		header.Set("Access-Control-Expose-Headers", "X-Request-ID")
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type allowlist map[string]struct{}

func newAllowlist(origins []string) allowlist {
	set := make(allowlist, len(origins))
	for _, origin := range origins {
		set[normalize(origin)] = struct{}{}
	}
	return set
}

func (a allowlist) open() bool { return len(a) == 0 }

func (a allowlist) contains(origin string) bool {
	if a.open() {
		return true
	}
	_, ok := a[normalize(origin)]
	return ok
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}
