package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

func (s *Server) index(c *gin.Context) {
	if s.dashboard.IndexFile != "" {
		c.File(s.dashboard.IndexFile)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
