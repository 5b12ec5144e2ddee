package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MultipartOverhead is allowed on top of the file limit for boundaries and
// the other form fields.
const MultipartOverhead = 1 << 20

// BodyLimit caps the request body at maxFile plus MultipartOverhead. Reads
// past the cap fail with *http.MaxBytesError. A non-positive maxFile leaves
// the body alone.
func BodyLimit(maxFile int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxFile > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFile+MultipartOverhead)
		}
		c.Next()
	}
}
