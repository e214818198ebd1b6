package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"flashcat.cloud/cpudash/api/ratelimit"
	"flashcat.cloud/cpudash/cloudwatch"
	"flashcat.cloud/cpudash/config"
	"flashcat.cloud/cpudash/inventory"
	"flashcat.cloud/cpudash/pkg/aop"
)

type Server struct {
	conf      config.HTTP
	dashboard config.Dashboard
	debug     bool

	engine *gin.Engine
	srv    *http.Server

	resolver inventory.Resolver
	fetcher  cloudwatch.Fetcher
	limiter  *ratelimit.Limiter
}

func NewServer(c *config.ConfigType, resolver inventory.Resolver, fetcher cloudwatch.Fetcher, limiter *ratelimit.Limiter) (*Server, error) {
	conf := c.HTTP

	gin.SetMode(conf.RunMode)

	if strings.ToLower(conf.RunMode) == "release" {
		aop.DisableConsoleColor()
	}

	s := &Server{
		conf:      conf,
		dashboard: c.Dashboard,
		debug:     c.DebugMode,
		engine:    gin.New(),
		resolver:  resolver,
		fetcher:   fetcher,
		limiter:   limiter,
	}

	// without trusted proxies ClientIP is the socket peer, which keeps
	// forwarding headers from picking a fresh rate limit key per request
	if err := s.engine.SetTrustedProxies(conf.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid http.trusted_proxies: %v", err)
	}

	// metrics and access log wrap recovery so panics are counted as 500
	if conf.EnableMetrics {
		s.engine.Use(aop.Metrics())
	}
	if conf.PrintAccess {
		s.engine.Use(aop.Logger())
	}
	s.engine.Use(aop.Recovery())

	newRouter(s)

	s.srv = &http.Server{
		Addr:         conf.Address,
		Handler:      s.engine,
		ReadTimeout:  time.Duration(conf.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(conf.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(conf.IdleTimeout) * time.Second,
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	log.Println("I! http server listening on:", s.conf.Address)

	var err error
	if s.conf.CertFile != "" && s.conf.KeyFile != "" {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		err = s.srv.ListenAndServeTLS(s.conf.CertFile, s.conf.KeyFile)
	} else {
		err = s.srv.ListenAndServe()
	}

	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	log.Println("I! http server stopping")
	return s.srv.Shutdown(ctx)
}
