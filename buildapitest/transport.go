package buildapitest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	buildapi "github.com/electricimp/build-api"
)

// Step is one scripted transport result.
type Step struct {
	Response *buildapi.Response
	Err      error

	// Hold, when non-nil, delays the result until the channel is closed
	// or the request context ends.
	Hold <-chan struct{}
}

// JSON returns a step answering status with v encoded as JSON.
func JSON(status int, v any) Step {
	data, _ := json.Marshal(v)
	return Step{Response: &buildapi.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       data,
	}}
}

// Text returns a step answering status with a plain-text body.
func Text(status int, body string) Step {
	return Step{Response: &buildapi.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       []byte(body),
	}}
}

// APIError returns a step answering status with a structured error body.
func APIError(status int, code, message string) Step {
	return JSON(status, map[string]any{
		"error": map[string]string{
			"code":          code,
			"message_short": message,
			"message_full":  message,
		},
	})
}

// Batch returns a 200 step carrying a log batch.
func Batch(pollURL string, entries ...buildapi.LogEntry) Step {
	if entries == nil {
		entries = []buildapi.LogEntry{}
	}
	return JSON(http.StatusOK, buildapi.LogBatch{Logs: entries, PollURL: pollURL})
}

// ScriptedTransport is a buildapi.Transport that replays Steps in order and
// records every request. Once the script is exhausted, requests block until
// their context ends, like a long-poll that never returns.
type ScriptedTransport struct {
	mu       sync.Mutex
	steps    []Step
	requests []*buildapi.Request
	changed  chan struct{}
}

// NewScriptedTransport creates a transport that replays steps.
func NewScriptedTransport(steps ...Step) *ScriptedTransport {
	return &ScriptedTransport{
		steps:   steps,
		changed: make(chan struct{}),
	}
}

// Add appends steps to the script.
func (st *ScriptedTransport) Add(steps ...Step) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.steps = append(st.steps, steps...)
}

// Requests returns all recorded requests.
func (st *ScriptedTransport) Requests() []*buildapi.Request {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]*buildapi.Request(nil), st.requests...)
}

// WaitForRequests blocks until at least n requests were made or timeout elapses.
func (st *ScriptedTransport) WaitForRequests(n int, timeout time.Duration) []*buildapi.Request {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		st.mu.Lock()
		if len(st.requests) >= n {
			reqs := append([]*buildapi.Request(nil), st.requests...)
			st.mu.Unlock()
			return reqs
		}
		changed := st.changed
		st.mu.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			return st.Requests()
		}
	}
}

// Do implements buildapi.Transport.
func (st *ScriptedTransport) Do(ctx context.Context, req *buildapi.Request) (*buildapi.Response, error) {
	st.mu.Lock()
	st.requests = append(st.requests, cloneRequest(req))
	close(st.changed)
	st.changed = make(chan struct{})

	if len(st.steps) == 0 {
		st.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	step := st.steps[0]
	st.steps = st.steps[1:]
	st.mu.Unlock()

	if step.Hold != nil {
		select {
		case <-step.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return step.Response, step.Err
}

func cloneRequest(req *buildapi.Request) *buildapi.Request {
	c := *req
	if req.Params != nil {
		c.Params = make(buildapi.Params, len(req.Params))
		for k, v := range req.Params {
			c.Params[k] = v
		}
	}
	return &c
}

// MockTransport is an http.RoundTripper that records requests and returns
// configured responses. Useful for testing the HTTP layer without a server.
type MockTransport struct {
	mu        sync.Mutex
	requests  []*http.Request
	responses []*http.Response
	errors    []error
	index     int
}

// NewMockTransport creates a new MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// AddResponse adds a response to be returned by the next request.
func (mt *MockTransport) AddResponse(resp *http.Response, err error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.responses = append(mt.responses, resp)
	mt.errors = append(mt.errors, err)
}

// AddJSONResponse is a helper to add a JSON response.
func (mt *MockTransport) AddJSONResponse(status int, body any) {
	data, _ := json.Marshal(body)
	resp := &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(string(data))),
	}
	resp.Header.Set("Content-Type", "application/json")
	mt.AddResponse(resp, nil)
}

// Requests returns all recorded requests.
func (mt *MockTransport) Requests() []*http.Request {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]*http.Request(nil), mt.requests...)
}

// RoundTrip implements http.RoundTripper.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.requests = append(mt.requests, req)

	if mt.index >= len(mt.responses) {
		return nil, fmt.Errorf("no more mock responses configured")
	}

	resp := mt.responses[mt.index]
	err := mt.errors[mt.index]
	mt.index++

	if resp != nil && resp.Request == nil {
		resp.Request = req
	}
	return resp, err
}
