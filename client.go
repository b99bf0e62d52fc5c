package buildapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Defaults for a client created without options.
const (
	DefaultAPIBase    = "build.electricimp.com"
	DefaultAPIVersion = "/v4"
	DefaultUserAgent  = "build-api-go"
)

// Client is a Build API client.
// It is safe for concurrent use; every log stream it starts owns its own
// cursor and shares nothing mutable with other streams.
type Client struct {
	transport  Transport
	baseURL    string
	apiVersion string
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a new Build API client.
//
// Example:
//
//	client := buildapi.NewClient(buildapi.WithAPIKey(os.Getenv("IMP_API_KEY")))
//	devices, err := client.ListDevices(ctx, nil)
func NewClient(opts ...ClientOption) *Client {
	cfg := &clientConfig{
		apiBase:    DefaultAPIBase,
		apiVersion: DefaultAPIVersion,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := cfg.transport
	if transport == nil {
		httpClient := cfg.httpClient
		if httpClient == nil {
			httpClient = &http.Client{
				// No global timeout: long-poll requests are bounded by the
				// server's wait, cancellation by the request context.
				Timeout: 0,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
					DialContext: (&net.Dialer{
						Timeout:   30 * time.Second,
						KeepAlive: 30 * time.Second,
					}).DialContext,
					TLSHandshakeTimeout:   10 * time.Second,
					ExpectContinueTimeout: 1 * time.Second,
					ForceAttemptHTTP2:     true,
				},
			}
		}
		transport = NewHTTPTransport(httpClient, cfg.apiKey, cfg.userAgent)
	}

	baseURL := cfg.baseURL
	if baseURL == "" {
		baseURL = "https://" + cfg.apiBase
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	now := cfg.clock
	if now == nil {
		now = time.Now
	}

	return &Client{
		transport:  transport,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiVersion: cfg.apiVersion,
		logger:     logger,
		now:        now,
	}
}

// URL returns the versioned URL for a resource path such as "/devices".
func (c *Client) URL(path string) string {
	return c.baseURL + c.apiVersion + path
}

// resolveHandle turns a continuation handle into a request URL.
// Handles are paths relative to the API host, without the version prefix;
// absolute URLs are used as-is.
func (c *Client) resolveHandle(handle string) string {
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	if !strings.HasPrefix(handle, "/") {
		handle = "/" + handle
	}
	return c.baseURL + handle
}

// Transport returns the underlying transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// call validates params against allowed, performs one request and decodes a
// successful JSON body into out (which may be nil).
func (c *Client) call(ctx context.Context, method, url string, params Params, allowed []string, out any) error {
	if err := params.validate(allowed...); err != nil {
		return err
	}

	resp, err := c.transport.Do(ctx, &Request{Method: method, URL: url, Params: params})
	if err != nil {
		return transportError(err)
	}
	if !resp.OK() {
		return decodeAPIError(resp)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return malformedBodyError(resp, err)
	}
	return nil
}
