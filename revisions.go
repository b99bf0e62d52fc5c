package buildapi

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Revision is one uploaded build of a model's device and agent code.
type Revision struct {
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	ReleaseNotes string    `json:"release_notes,omitempty"`
	Marker       string    `json:"marker,omitempty"`
	DeviceCode   string    `json:"device_code,omitempty"`
	AgentCode    string    `json:"agent_code,omitempty"`
}

// Parameters accepted by the revision calls.
var (
	revisionFilterParams = []string{"since", "until", "build_min", "build_max"}
	revisionCreateParams = []string{"device_code", "agent_code", "release_notes", "marker"}
)

// ListModelRevisions lists a model's revisions.
// Accepted params: since, until, build_min, build_max.
func (c *Client) ListModelRevisions(ctx context.Context, modelID string, params Params) ([]Revision, error) {
	var out struct {
		Revisions []Revision `json:"revisions"`
	}
	if err := c.call(ctx, http.MethodGet, c.modelURL(modelID)+"/revisions", params, revisionFilterParams, &out); err != nil {
		return nil, err
	}
	return out.Revisions, nil
}

// GetModelRevision returns one build of a model.
func (c *Client) GetModelRevision(ctx context.Context, modelID string, build int) (*Revision, error) {
	var out struct {
		Revision Revision `json:"revision"`
	}
	url := c.modelURL(modelID) + "/revisions/" + strconv.Itoa(build)
	if err := c.call(ctx, http.MethodGet, url, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Revision, nil
}

// CreateModelRevision uploads new code for a model.
// Accepted params: device_code, agent_code, release_notes, marker.
func (c *Client) CreateModelRevision(ctx context.Context, modelID string, params Params) (*Revision, error) {
	var out struct {
		Revision Revision `json:"revision"`
	}
	if err := c.call(ctx, http.MethodPost, c.modelURL(modelID)+"/revisions", params, revisionCreateParams, &out); err != nil {
		return nil, err
	}
	return &out.Revision, nil
}
