package buildapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// Client Options
// =============================================================================

type clientConfig struct {
	apiKey     string
	apiBase    string
	apiVersion string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	transport  Transport
	logger     *zap.Logger
	clock      func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithAPIKey sets the API key sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.apiKey = key
	}
}

// WithAPIBase sets the API host. Default is "build.electricimp.com".
// Requests are made over HTTPS.
func WithAPIBase(host string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.apiBase = host
	}
}

// WithAPIVersion sets the version prefix added to resource paths.
// Default is "/v4".
func WithAPIVersion(version string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.apiVersion = version
	}
}

// WithBaseURL sets a full scheme and host, e.g. "http://127.0.0.1:8080".
// It overrides WithAPIBase and is mostly useful for tests and proxies.
func WithBaseURL(url string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.baseURL = url
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client for the default transport.
// If not set, a default client with sensible timeouts is used.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithTransport replaces the HTTP transport entirely.
// The transport is responsible for authenticating requests.
func WithTransport(t Transport) ClientOption {
	return func(cfg *clientConfig) {
		cfg.transport = t
	}
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = l
	}
}

// WithClock sets the time source used to anchor log streams at "now".
func WithClock(now func() time.Time) ClientOption {
	return func(cfg *clientConfig) {
		cfg.clock = now
	}
}

// =============================================================================
// Stream Options
// =============================================================================

type streamConfig struct {
	cursor         *Cursor
	logType        string
	wait           time.Duration
	checkpointer   Checkpointer
	resumeLastSeen bool
}

// StreamOption configures a log stream.
type StreamOption func(*streamConfig)

// WithCursor sets the position the stream starts from.
// Without it the stream resumes from the checkpointer, if one is set,
// and otherwise starts at the current time.
func WithCursor(c Cursor) StreamOption {
	return func(cfg *streamConfig) {
		cfg.cursor = &c
	}
}

// WithSince starts the stream after the given time.
func WithSince(t time.Time) StreamOption {
	return WithCursor(SinceCursor(t))
}

// WithLogType restricts timestamp-mode requests to one log type.
func WithLogType(t string) StreamOption {
	return func(cfg *streamConfig) {
		cfg.logType = t
	}
}

// WithWait asks the server to hold each timestamp-mode request open for
// at most d. The server counts in whole seconds, so d is rounded up.
// The server default applies when unset.
func WithWait(d time.Duration) StreamOption {
	return func(cfg *streamConfig) {
		cfg.wait = d
	}
}

// WithCheckpointer persists the stream position after every delivered batch.
func WithCheckpointer(c Checkpointer) StreamOption {
	return func(cfg *streamConfig) {
		cfg.checkpointer = c
	}
}

// WithResumeFromLastSeen re-anchors an expired long-poll at the last
// delivered timestamp instead of the current time. This avoids skipping
// logs at the cost of possible duplicates.
func WithResumeFromLastSeen() StreamOption {
	return func(cfg *streamConfig) {
		cfg.resumeLastSeen = true
	}
}
