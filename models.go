package buildapi

import (
	"context"
	"net/http"
	"net/url"
)

// Model groups devices that run the same code.
type Model struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Devices []string `json:"devices,omitempty"`
}

// ListModels lists models. Accepted params: name.
func (c *Client) ListModels(ctx context.Context, params Params) ([]Model, error) {
	var out struct {
		Models []Model `json:"models"`
	}
	if err := c.call(ctx, http.MethodGet, c.URL("/models"), params, []string{"name"}, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// GetModel returns one model.
func (c *Client) GetModel(ctx context.Context, modelID string) (*Model, error) {
	return c.modelCall(ctx, http.MethodGet, c.modelURL(modelID), nil)
}

// CreateModel creates a model with the given name.
func (c *Client) CreateModel(ctx context.Context, name string) (*Model, error) {
	return c.modelCall(ctx, http.MethodPost, c.URL("/models"), Params{"name": name})
}

// RenameModel changes a model's name.
func (c *Client) RenameModel(ctx context.Context, modelID, name string) (*Model, error) {
	return c.modelCall(ctx, http.MethodPut, c.modelURL(modelID), Params{"name": name})
}

// DeleteModel deletes a model.
func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	return c.call(ctx, http.MethodDelete, c.modelURL(modelID), nil, nil, nil)
}

// RestartModel restarts every device assigned to the model.
func (c *Client) RestartModel(ctx context.Context, modelID string) error {
	return c.call(ctx, http.MethodPost, c.modelURL(modelID)+"/restart", nil, nil, nil)
}

func (c *Client) modelCall(ctx context.Context, method, url string, params Params) (*Model, error) {
	var out struct {
		Model Model `json:"model"`
	}
	if err := c.call(ctx, method, url, params, []string{"name"}, &out); err != nil {
		return nil, err
	}
	return &out.Model, nil
}

func (c *Client) modelURL(modelID string) string {
	return c.URL("/models/" + url.PathEscape(modelID))
}
