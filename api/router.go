package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	*gin.Engine
	srv *Server
}

func newRouter(srv *Server) *Router {
	r := &Router{
		Engine: srv.engine,
		srv:    srv,
	}

	r.pages()
	r.cpu()
	r.ops()
	return r
}

func (r *Router) pages() {
	r.GET("/", chain(r.srv.limiter.Default("/"), r.srv.index)...)
}

func (r *Router) cpu() {
	r.GET("/api/cpu", chain(r.srv.limiter.CPU("/api/cpu"), r.srv.getCPU)...)
}

func (r *Router) ops() {
	r.GET("/ping", chain(r.srv.limiter.Default("/ping"), func(c *gin.Context) {
		c.String(200, "pong")
	})...)

	if r.srv.conf.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func chain(middleware []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(middleware, h)
}
