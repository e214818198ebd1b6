package aop

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic in a handler into a plain 500 response and logs the
// stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("E! panic recovered: %v\n%s", err, debug.Stack())
				if !c.Writer.Written() {
					c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
