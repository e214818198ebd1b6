package httpx

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

// CreateHTTPTransport creates the *http.Transport used for outbound provider
// API calls. The pool settings mirror http.DefaultTransport.
func CreateHTTPTransport(proxy func(*http.Request) (*url.URL, error)) *http.Transport {
	if proxy == nil {
		proxy = http.ProxyFromEnvironment
	}

	return &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
			// Enables TCP keepalives to detect broken connections
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 5,
		// This parameter is set to avoid connections sitting idle in the pool indefinitely
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewClient returns an http.Client bound by timeout. A zero timeout means no
// client side limit.
func NewClient(timeout time.Duration, proxy func(*http.Request) (*url.URL, error)) *http.Client {
	return &http.Client{
		Transport: CreateHTTPTransport(proxy),
		Timeout:   timeout,
	}
}
