package aop

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

var consoleColor = true

func DisableConsoleColor() {
	consoleColor = false
	gin.DisableConsoleColor()
}

// Logger writes one access line per request through the process logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		code := statusText(status)
		log.Printf("I! [GIN] %s | %s | %13v | %15s | %-7s %s %s",
			start.Format("2006/01/02 - 15:04:05"),
			code,
			time.Since(start),
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}

func statusText(status int) string {
	if !consoleColor {
		return fmt.Sprintf("%3d", status)
	}

	var color string
	switch {
	case status >= 200 && status < 300:
		color = "\033[97;42m"
	case status >= 300 && status < 400:
		color = "\033[90;47m"
	case status >= 400 && status < 500:
		color = "\033[90;43m"
	default:
		color = "\033[97;41m"
	}
	return color + fmt.Sprintf(" %3d \033[0m", status)
}
