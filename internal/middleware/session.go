package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	SessionHeader     = "X-Session-Id"
	SessionParam      = "session_id"
	ContextSessionKey = "session_id"
)

// Session copies the client's session token from the X-Session-Id header or
// the session_id query parameter into the context. The token is not checked
// here; handlers validate it and may also take it from the request body.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(SessionHeader))
		if token == "" {
			token = strings.TrimSpace(c.Query(SessionParam))
		}
		if token != "" {
			c.Set(ContextSessionKey, token)
		}
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) string {
	v, ok := c.Get(ContextSessionKey)
	if !ok {
		return ""
	}
	token, _ := v.(string)
	return token
}
