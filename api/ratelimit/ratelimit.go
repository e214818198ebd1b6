package ratelimit

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"flashcat.cloud/cpudash/config"
	"flashcat.cloud/cpudash/pkg/metrics"
)

const TooManyRequestsMessage = "Too many requests. Please wait and try again."

// Limiter hands out fixed-window throttling middleware keyed by client
// address. Every (route, rate) pair has its own counter. The address is
// gin's ClientIP, so forwarding headers only count when the engine trusts
// the peer that sent them.
type Limiter struct {
	enabled  bool
	store    limiter.Store
	defaults []limiter.Rate
	cpu      []limiter.Rate
	closer   func() error
}

func New(conf config.RateLimit) (*Limiter, error) {
	l := &Limiter{enabled: conf.Enable}
	if !l.enabled {
		return l, nil
	}

	var err error
	if l.defaults, err = ParseRates(conf.DefaultLimits); err != nil {
		return nil, err
	}
	if l.cpu, err = ParseRates(conf.CPULimits); err != nil {
		return nil, err
	}

	switch conf.Store {
	case "", "memory":
		l.store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          conf.Prefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddress,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping ratelimit redis %s: %v", conf.RedisAddress, err)
		}
		if l.store, err = newRedisStore(client, conf.Prefix); err != nil {
			client.Close()
			return nil, err
		}
		l.closer = client.Close
	default:
		return nil, fmt.Errorf("unknown ratelimit store: %s", conf.Store)
	}

	log.Printf("I! rate limiting enabled, store: %s, default: %v, cpu: %v", conf.Store, conf.DefaultLimits, conf.CPULimits)
	return l, nil
}

// newRedisStore loads the limiter scripts into redis, so it fails fast when
// the server refuses them.
func newRedisStore(client sredis.Client, prefix string) (limiter.Store, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   prefix,
		MaxRetry: limiter.DefaultMaxRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init ratelimit redis store: %v", err)
	}
	return store, nil
}

// NewWithStore builds an enabled limiter on an existing store.
func NewWithStore(store limiter.Store, defaults, cpu []limiter.Rate) *Limiter {
	return &Limiter{
		enabled:  true,
		store:    store,
		defaults: defaults,
		cpu:      cpu,
	}
}

// ParseRates parses limits written as <count>-<S|M|H|D>, e.g. 10-M.
func ParseRates(limits []string) ([]limiter.Rate, error) {
	rates := make([]limiter.Rate, 0, len(limits))
	for _, s := range limits {
		rate, err := limiter.NewRateFromFormatted(s)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %v", s, err)
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// Default returns the middleware for routes without their own limits.
func (l *Limiter) Default(route string) []gin.HandlerFunc {
	if l == nil {
		return nil
	}
	return l.handlers(route, l.defaults)
}

// CPU returns the middleware for the metrics query route. Its limits replace
// the defaults.
func (l *Limiter) CPU(route string) []gin.HandlerFunc {
	if l == nil {
		return nil
	}
	return l.handlers(route, l.cpu)
}

func (l *Limiter) handlers(route string, rates []limiter.Rate) []gin.HandlerFunc {
	if !l.enabled {
		return nil
	}

	handlers := make([]gin.HandlerFunc, 0, len(rates))
	for _, rate := range rates {
		scope := fmt.Sprintf("%s:%d-%s", route, rate.Limit, rate.Period)
		handlers = append(handlers, mgin.NewMiddleware(
			limiter.New(l.store, rate),
			mgin.WithKeyGetter(func(c *gin.Context) string {
				return scope + ":" + c.ClientIP()
			}),
			mgin.WithLimitReachedHandler(func(c *gin.Context) {
				metrics.RateLimited.WithLabelValues(route).Inc()
				c.JSON(http.StatusTooManyRequests, gin.H{"error": TooManyRequestsMessage})
			}),
			mgin.WithErrorHandler(func(c *gin.Context, err error) {
				log.Println("E! ratelimit store error:", err)
				c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}),
		))
	}
	return handlers
}

func (l *Limiter) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer()
}
