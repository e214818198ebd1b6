package config

import (
	"fmt"
	"net/http"
	"net/url"

	"flashcat.cloud/cpudash/pkg/httpx"
)

type HTTPProxy struct {
	HTTPProxyURL string `toml:"http_proxy"`
}

func (p *HTTPProxy) Proxy() (func(*http.Request) (*url.URL, error), error) {
	if len(p.HTTPProxyURL) > 0 {
		if _, err := url.Parse(p.HTTPProxyURL); err != nil {
			return nil, fmt.Errorf("error parsing proxy url %q: %w", p.HTTPProxyURL, err)
		}
	}
	return httpx.GetProxyFunc(p.HTTPProxyURL), nil
}
