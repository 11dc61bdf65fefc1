// Package httpclient configures the HTTP client used to call upstream services.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const defaultUserAgent = "floodzone-resolver/1.0"

type Option func(*http.Client)

// WithTimeout caps the whole exchange, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *http.Client) { c.Timeout = d }
}

// WithUserAgent sets the User-Agent on requests that do not carry one.
func WithUserAgent(ua string) Option {
	return func(c *http.Client) {
		c.Transport = &uaTransport{next: c.Transport, ua: ua}
	}
}

// NewOutbound creates a new outbound http client
func NewOutbound(opts ...Option) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	c := &http.Client{
		Transport: &uaTransport{next: transport, ua: defaultUserAgent},
		Timeout:   30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type uaTransport struct {
	next http.RoundTripper
	ua   string
}

func (t *uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") == "" && t.ua != "" {
		r = r.Clone(r.Context())
		r.Header.Set("User-Agent", t.ua)
	}
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(r)
}
