package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flashcat.cloud/cpudash/chart"
	"flashcat.cloud/cpudash/inventory"
)

const instanceNotFound = "Instance not found"

type cpuQuery struct {
	IP       string
	Hours    int
	Interval int
}

func (s *Server) parseCPUQuery(c *gin.Context) (cpuQuery, error) {
	q := cpuQuery{
		IP:       c.DefaultQuery("ip", s.dashboard.DefaultIP),
		Hours:    s.dashboard.DefaultHours,
		Interval: s.dashboard.DefaultInterval,
	}

	var err error
	if v, ok := c.GetQuery("hours"); ok {
		if q.Hours, err = parseInt32(v); err != nil {
			return q, fmt.Errorf("invalid hours %q: %v", v, err)
		}
	}
	if v, ok := c.GetQuery("interval"); ok {
		if q.Interval, err = parseInt32(v); err != nil {
			return q, fmt.Errorf("invalid interval %q: %v", v, err)
		}
	}
	return q, nil
}

// parseInt32 rejects values the provider's int32 period would silently wrap.
func parseInt32(v string) (int, error) {
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Server) getCPU(c *gin.Context) {
	cc := NewContext(c)

	q, err := s.parseCPUQuery(c)
	if err != nil {
		cc.PlainError(http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()

	instanceID, err := s.resolver.InstanceID(ctx, q.IP)
	if errors.Is(err, inventory.ErrInstanceNotFound) {
		cc.Failed(http.StatusNotFound, instanceNotFound)
		return
	}
	if err != nil {
		cc.PlainError(http.StatusInternalServerError, err)
		return
	}

	samples, err := s.fetcher.CPUUtilization(ctx, instanceID, q.Hours, q.Interval)
	if err != nil {
		cc.PlainError(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, chart.Shape(instanceID, q.IP, samples, s.dashboard.Location()))
}
