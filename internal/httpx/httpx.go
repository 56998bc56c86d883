package httpx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultUserAgent is sent when no other agent is configured; some sites
// reject Go's default client signature.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:129.0) Gecko/20100101 Firefox/129.0"

const DefaultTorProxyURL = "socks5://127.0.0.1:9050"

const DefaultTimeout = 10 * time.Second

// Doer lets us accept *http.Client or a test double.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	// Timeout bounds a whole exchange including redirects.
	Timeout time.Duration

	// MaxConnsPerHost caps parallel connections to one host; 0 means no cap.
	MaxConnsPerHost int

	WithTor     bool
	TorProxyURL string
}

func NewClient(cfg ClientConfig) (*http.Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TorProxyURL == "" {
		cfg.TorProxyURL = DefaultTorProxyURL
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if cfg.WithTor {
		dial, err := torDialer(cfg.TorProxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}, nil
}

func torDialer(rawURL string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse tor proxy url: %w", err)
	}

	dialer, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create tor dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// NewGet builds a GET request carrying userAgent and any extra headers.
// A User-Agent in headers takes precedence.
func NewGet(ctx context.Context, rawURL, userAgent string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
