package api

import (
	"log"

	"github.com/gin-gonic/gin"
)

type Context struct {
	*gin.Context
}

func NewContext(c *gin.Context) *Context {
	return &Context{c}
}

// Failed answers with the JSON error body used for expected failures.
func (c *Context) Failed(code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// PlainError answers unexpected failures with a plain text body.
func (c *Context) PlainError(code int, err error) {
	log.Printf("E! %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	_ = c.Context.Error(err)
	c.String(code, err.Error())
}
