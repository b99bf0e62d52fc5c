package buildapitest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	buildapi "github.com/electricimp/build-api"
)

// MockServer is an in-memory implementation of the Build API.
// It serves devices, models, revisions and long-polled device logs.
type MockServer struct {
	server *httptest.Server

	// APIKey, when set, is required on every request.
	APIKey string

	// LongPollTimeout is how long a log request with nothing to return is
	// held before answering 504. Default is 50ms.
	LongPollTimeout time.Duration

	mu        sync.Mutex
	devices   map[string]*buildapi.Device
	models    map[string]*buildapi.Model
	revisions map[string][]buildapi.Revision
	logs      map[string][]buildapi.LogEntry
	tokens    map[string]logToken
	injected  []injectedResponse
	requests  []string
	notify    chan struct{}
	nextID    int
}

// logToken is the position a poll URL resumes from.
type logToken struct {
	deviceID string
	next     int
}

type injectedResponse struct {
	status int
	body   string
}

// NewMockServer creates and starts a mock Build API server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		LongPollTimeout: 50 * time.Millisecond,
		devices:         make(map[string]*buildapi.Device),
		models:          make(map[string]*buildapi.Model),
		revisions:       make(map[string][]buildapi.Revision),
		logs:            make(map[string][]buildapi.LogEntry),
		tokens:          make(map[string]logToken),
		notify:          make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v4/devices", ms.handleListDevices)
	mux.HandleFunc("GET /v4/devices/{id}", ms.handleGetDevice)
	mux.HandleFunc("PUT /v4/devices/{id}", ms.handleUpdateDevice)
	mux.HandleFunc("DELETE /v4/devices/{id}", ms.handleDeleteDevice)
	mux.HandleFunc("GET /v4/devices/{id}/logs", ms.handleLogs)
	mux.HandleFunc("GET /v4/models", ms.handleListModels)
	mux.HandleFunc("POST /v4/models", ms.handleCreateModel)
	mux.HandleFunc("GET /v4/models/{id}", ms.handleGetModel)
	mux.HandleFunc("PUT /v4/models/{id}", ms.handleRenameModel)
	mux.HandleFunc("DELETE /v4/models/{id}", ms.handleDeleteModel)
	mux.HandleFunc("POST /v4/models/{id}/restart", ms.handleRestartModel)
	mux.HandleFunc("GET /v4/models/{id}/revisions", ms.handleListRevisions)
	mux.HandleFunc("POST /v4/models/{id}/revisions", ms.handleCreateRevision)
	mux.HandleFunc("GET /v4/models/{id}/revisions/{build}", ms.handleGetRevision)

	ms.server = httptest.NewServer(ms.authenticate(mux))
	return ms
}

// URL returns the base URL of the mock server.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Client returns a buildapi client pointed at the mock server.
func (ms *MockServer) Client(opts ...buildapi.ClientOption) *buildapi.Client {
	base := []buildapi.ClientOption{
		buildapi.WithBaseURL(ms.server.URL),
		buildapi.WithHTTPClient(ms.server.Client()),
		buildapi.WithAPIKey(ms.APIKey),
	}
	return buildapi.NewClient(append(base, opts...)...)
}

// Close shuts down the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// AddDevice registers a device.
func (ms *MockServer) AddDevice(d buildapi.Device) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.devices[d.ID] = &d
}

// AddModel registers a model.
func (ms *MockServer) AddModel(m buildapi.Model) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.models[m.ID] = &m
}

// Device returns a copy of a stored device.
func (ms *MockServer) Device(id string) (buildapi.Device, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	d, ok := ms.devices[id]
	if !ok {
		return buildapi.Device{}, false
	}
	return *d, true
}

// AppendLogs appends entries to a device's log and wakes pending long-polls.
func (ms *MockServer) AppendLogs(deviceID string, entries ...buildapi.LogEntry) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.logs[deviceID] = append(ms.logs[deviceID], entries...)
	close(ms.notify)
	ms.notify = make(chan struct{})
}

// InjectError makes the next log request answer with status and body.
// A body starting with '{' is sent as JSON, anything else as plain text.
func (ms *MockServer) InjectError(status int, body string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.injected = append(ms.injected, injectedResponse{status: status, body: body})
}

// ExpireTokens invalidates every poll URL issued so far.
func (ms *MockServer) ExpireTokens() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tokens = make(map[string]logToken)
}

// LogRequests returns the request URIs of every log request received.
func (ms *MockServer) LogRequests() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]string(nil), ms.requests...)
}

func (ms *MockServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ms.APIKey != "" {
			want := "Basic " + base64.StdEncoding.EncodeToString([]byte(ms.APIKey))
			if r.Header.Get("Authorization") != want {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogs serves GET /v4/devices/{id}/logs in timestamp or token mode.
func (ms *MockServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("id")
	query := r.URL.Query()

	ms.mu.Lock()
	ms.requests = append(ms.requests, r.URL.RequestURI())
	if len(ms.injected) > 0 {
		inj := ms.injected[0]
		ms.injected = ms.injected[1:]
		ms.mu.Unlock()
		writeRaw(w, inj.status, inj.body)
		return
	}
	if _, ok := ms.devices[deviceID]; !ok {
		ms.mu.Unlock()
		writeError(w, http.StatusNotFound, "DeviceNotFound", "device not found")
		return
	}

	var match func(i int, e buildapi.LogEntry) bool
	if token := query.Get("token"); token != "" {
		tok, ok := ms.tokens[token]
		if !ok || tok.deviceID != deviceID {
			ms.mu.Unlock()
			writeError(w, http.StatusBadRequest, buildapi.CodeInvalidLogToken, "log token not recognized")
			return
		}
		match = func(i int, _ buildapi.LogEntry) bool { return i >= tok.next }
	} else {
		since, err := time.Parse(time.RFC3339Nano, query.Get("since"))
		if err != nil {
			ms.mu.Unlock()
			writeError(w, http.StatusBadRequest, "InvalidParam", "since must be an ISO-8601 timestamp")
			return
		}
		match = func(_ int, e buildapi.LogEntry) bool { return e.Timestamp.After(since) }
	}
	logType := query.Get("type")
	ms.mu.Unlock()

	deadline := time.NewTimer(ms.longPollTimeout(query.Get("wait")))
	defer deadline.Stop()

	for {
		ms.mu.Lock()
		all := ms.logs[deviceID]
		var out []buildapi.LogEntry
		for i, e := range all {
			if match(i, e) && (logType == "" || e.Type == logType) {
				out = append(out, e)
			}
		}
		if len(out) > 0 {
			token := ms.issueToken(deviceID, len(all))
			ms.mu.Unlock()
			writeJSON(w, http.StatusOK, buildapi.LogBatch{
				Logs:    out,
				PollURL: "/v4/devices/" + deviceID + "/logs?token=" + token,
			})
			return
		}
		notify := ms.notify
		ms.mu.Unlock()

		select {
		case <-notify:
		case <-deadline.C:
			writeError(w, http.StatusGatewayTimeout, "GatewayTimeout", "no new logs")
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (ms *MockServer) longPollTimeout(wait string) time.Duration {
	if secs, err := strconv.Atoi(wait); err == nil && secs > 0 {
		if d := time.Duration(secs) * time.Second; d < ms.LongPollTimeout {
			return d
		}
	}
	return ms.LongPollTimeout
}

// issueToken must be called with ms.mu held.
func (ms *MockServer) issueToken(deviceID string, next int) string {
	ms.nextID++
	token := fmt.Sprintf("t%d", ms.nextID)
	ms.tokens[token] = logToken{deviceID: deviceID, next: next}
	return token
}

func (ms *MockServer) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	q := r.URL.Query()
	devices := make([]buildapi.Device, 0, len(ms.devices))
	for _, d := range ms.devices {
		if v := q.Get("name"); v != "" && d.Name != v {
			continue
		}
		if v := q.Get("model_id"); v != "" && d.ModelID != v {
			continue
		}
		if v := q.Get("device_id"); v != "" && d.ID != v {
			continue
		}
		if v := q.Get("mac_address"); v != "" && d.MacAddress != v {
			continue
		}
		devices = append(devices, *d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

func (ms *MockServer) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	d, ok := ms.devices[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "DeviceNotFound", "device not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": d})
}

func (ms *MockServer) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody", err.Error())
		return
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	d, ok := ms.devices[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "DeviceNotFound", "device not found")
		return
	}
	if name, ok := body["name"]; ok {
		d.Name = name
	}
	if modelID, ok := body["model_id"]; ok {
		d.ModelID = modelID
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": d})
}

func (ms *MockServer) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := ms.devices[id]; !ok {
		writeError(w, http.StatusNotFound, "DeviceNotFound", "device not found")
		return
	}
	delete(ms.devices, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (ms *MockServer) handleListModels(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	name := r.URL.Query().Get("name")
	models := make([]buildapi.Model, 0, len(ms.models))
	for _, m := range ms.models {
		if name != "" && m.Name != name {
			continue
		}
		models = append(models, *m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (ms *MockServer) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body["name"]) == "" {
		writeError(w, http.StatusBadRequest, "InvalidParam", "name is required")
		return
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.nextID++
	m := &buildapi.Model{ID: fmt.Sprintf("m%d", ms.nextID), Name: body["name"]}
	ms.models[m.ID] = m
	writeJSON(w, http.StatusOK, map[string]any{"model": m})
}

func (ms *MockServer) handleGetModel(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	m, ok := ms.models[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "ModelNotFound", "model not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": m})
}

func (ms *MockServer) handleRenameModel(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody", err.Error())
		return
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	m, ok := ms.models[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "ModelNotFound", "model not found")
		return
	}
	m.Name = body["name"]
	writeJSON(w, http.StatusOK, map[string]any{"model": m})
}

func (ms *MockServer) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := ms.models[id]; !ok {
		writeError(w, http.StatusNotFound, "ModelNotFound", "model not found")
		return
	}
	delete(ms.models, id)
	delete(ms.revisions, id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (ms *MockServer) handleRestartModel(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.models[r.PathValue("id")]; !ok {
		writeError(w, http.StatusNotFound, "ModelNotFound", "model not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (ms *MockServer) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := ms.models[id]; !ok {
		writeError(w, http.StatusNotFound, "ModelNotFound", "model not found")
		return
	}

	q := r.URL.Query()
	minBuild, _ := strconv.Atoi(q.Get("build_min"))
	maxBuild, _ := strconv.Atoi(q.Get("build_max"))
	revisions := make([]buildapi.Revision, 0, len(ms.revisions[id]))
	for _, rev := range ms.revisions[id] {
		if minBuild > 0 && rev.Version < minBuild {
			continue
		}
		if maxBuild > 0 && rev.Version > maxBuild {
			continue
		}
		revisions = append(revisions, rev)
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
}

func (ms *MockServer) handleCreateRevision(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody", err.Error())
		return
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := ms.models[id]; !ok {
		writeError(w, http.StatusNotFound, "ModelNotFound", "model not found")
		return
	}
	rev := buildapi.Revision{
		Version:      len(ms.revisions[id]) + 1,
		CreatedAt:    time.Now().UTC(),
		DeviceCode:   body["device_code"],
		AgentCode:    body["agent_code"],
		ReleaseNotes: body["release_notes"],
		Marker:       body["marker"],
	}
	ms.revisions[id] = append(ms.revisions[id], rev)
	writeJSON(w, http.StatusOK, map[string]any{"revision": rev})
}

func (ms *MockServer) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	build, err := strconv.Atoi(r.PathValue("build"))
	revs := ms.revisions[r.PathValue("id")]
	if err != nil || build < 1 || build > len(revs) {
		writeError(w, http.StatusNotFound, "RevisionNotFound", "revision not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": revs[build-1]})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":          code,
			"message_short": message,
			"message_full":  message,
		},
	})
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	if json.Valid([]byte(body)) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(status)
	w.Write([]byte(body))
}
