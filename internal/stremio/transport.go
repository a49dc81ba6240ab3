package stremio

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient returns the HTTP client used to reach the API. An empty
// proxyURL means direct connections; http, https and socks5 proxies are
// supported.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Never fall back to HTTP_PROXY and friends: the proxy is configured explicitly.
	transport.Proxy = nil

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
