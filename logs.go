package buildapi

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// LogEntry is one device log line.
type LogEntry struct {
	// Timestamp is non-decreasing within a device's stream.
	Timestamp time.Time `json:"timestamp"`

	// Type is the log source, e.g. "server.log", "agent.error", "status".
	Type string `json:"type"`

	// Message is the log payload.
	Message string `json:"message"`
}

// LogBatch is the body of one device logs response.
type LogBatch struct {
	// Logs are in arrival order. May be empty.
	Logs []LogEntry `json:"logs"`

	// PollURL is the continuation handle to poll next, if the server issued one.
	PollURL string `json:"poll_url,omitempty"`
}

// Last returns the last entry of the batch.
func (b *LogBatch) Last() (LogEntry, bool) {
	if b == nil || len(b.Logs) == 0 {
		return LogEntry{}, false
	}
	return b.Logs[len(b.Logs)-1], true
}

// Parameters accepted by GetDeviceLogs.
var deviceLogParams = []string{"since", "type", "wait", "token"}

// GetDeviceLogs fetches one batch of device logs.
// Accepted params: since, type, wait, token.
//
// For continuous tailing use StartStream, which resumes across long-poll
// expiries and rejected continuation handles.
func (c *Client) GetDeviceLogs(ctx context.Context, deviceID string, params Params) (*LogBatch, error) {
	var batch LogBatch
	if err := c.call(ctx, http.MethodGet, c.deviceLogsURL(deviceID), params, deviceLogParams, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (c *Client) deviceLogsURL(deviceID string) string {
	return c.URL("/devices/" + url.PathEscape(deviceID) + "/logs")
}
