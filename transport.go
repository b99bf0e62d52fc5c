package buildapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Transport performs exactly one authenticated request.
//
// It returns a Response for every request that received an HTTP response,
// whatever its status, and an error only when no response was received.
// Transports do not retry.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is one Build API call.
type Request struct {
	// Method is the HTTP verb.
	Method string

	// URL is the full request URL.
	URL string

	// Params are sent as the query string for GET and as a JSON body otherwise.
	Params Params

	// Header holds extra headers, applied after the defaults.
	Header http.Header
}

// Response is a received HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText returns the reason phrase, e.g. "Gateway Timeout".
func (r *Response) StatusText() string {
	if _, text, ok := strings.Cut(r.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(r.StatusCode)
}

// IsJSON reports whether the content type says the body is JSON.
func (r *Response) IsJSON() bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get(headerContentType))
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	headerUserAgent     = "User-Agent"
	headerAccept        = "Accept"
)

// HTTPTransport is the default Transport. It authenticates every request
// identically with the configured API key.
type HTTPTransport struct {
	client    *http.Client
	auth      string
	userAgent string
}

// NewHTTPTransport returns a Transport using c and the given API key.
func NewHTTPTransport(c *http.Client, apiKey, userAgent string) *HTTPTransport {
	return &HTTPTransport{
		client:    c,
		auth:      "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey)),
		userAgent: userAgent,
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	req, err := t.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, r *Request) (*http.Request, error) {
	target := r.URL
	var body io.Reader

	if len(r.Params) > 0 {
		if r.Method == http.MethodGet {
			u, err := url.Parse(r.URL)
			if err != nil {
				return nil, fmt.Errorf("parse url %q: %w", r.URL, err)
			}
			q := u.Query()
			for k, v := range r.Params {
				q.Set(k, v)
			}
			u.RawQuery = q.Encode()
			target = u.String()
		} else {
			data, err := json.Marshal(r.Params)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set(headerUserAgent, t.userAgent)
	req.Header.Set(headerContentType, "application/json")
	req.Header.Set(headerAccept, "application/json")
	req.Header.Set(headerAuthorization, t.auth)

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

// Ensure HTTPTransport implements Transport
var _ Transport = (*HTTPTransport)(nil)
