package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsPolicy answers browser preflights for the upload and search API.
// An empty allowlist admits any origin.
type corsPolicy struct {
	origins map[string]struct{}
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods":  "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers":  "Content-Type, " + RequestIDHeader + ", " + SessionHeader,
	"Access-Control-Expose-Headers": RequestIDHeader,
}

func newCORSPolicy(allowlist []string) *corsPolicy {
	p := &corsPolicy{origins: make(map[string]struct{}, len(allowlist))}
	for _, origin := range allowlist {
		if origin = strings.TrimSpace(origin); origin != "" {
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

// allowOrigin returns the value for Access-Control-Allow-Origin, or false
// when the origin is not admitted.
func (p *corsPolicy) allowOrigin(origin string) (string, bool) {
	if len(p.origins) == 0 {
		return "*", true
	}
	if _, ok := p.origins[origin]; ok && origin != "" {
		return origin, true
	}
	return "", false
}

func CORS(allowlist []string) gin.HandlerFunc {
	policy := newCORSPolicy(allowlist)
	return func(c *gin.Context) {
		if value, ok := policy.allowOrigin(c.GetHeader("Origin")); ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", value)
			if value != "*" {
				h.Add("Vary", "Origin")
			}
			for k, v := range corsHeaders {
				h.Set(k, v)
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
