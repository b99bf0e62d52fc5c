package buildapi

import (
	"context"
	"net/http"
	"net/url"
)

// Device is an imp device as reported by the Build API.
type Device struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ModelID     string `json:"model_id"`
	MacAddress  string `json:"mac_address,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
	AgentStatus string `json:"agent_status,omitempty"`
	PowerState  string `json:"powerstate,omitempty"`
	RSSI        int    `json:"rssi,omitempty"`
}

// Parameters accepted by ListDevices.
var deviceFilterParams = []string{"device_id", "mac_address", "model_id", "name"}

// ListDevices lists devices.
// Accepted params: device_id, mac_address, model_id, name.
//
// Example:
//
//	devices, err := client.ListDevices(ctx, buildapi.Params{"model_id": modelID})
func (c *Client) ListDevices(ctx context.Context, params Params) ([]Device, error) {
	var out struct {
		Devices []Device `json:"devices"`
	}
	if err := c.call(ctx, http.MethodGet, c.URL("/devices"), params, deviceFilterParams, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// GetDevice returns one device.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*Device, error) {
	var out struct {
		Device Device `json:"device"`
	}
	if err := c.call(ctx, http.MethodGet, c.deviceURL(deviceID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Device, nil
}

// AssignDevice moves a device to a model.
func (c *Client) AssignDevice(ctx context.Context, deviceID, modelID string) (*Device, error) {
	return c.updateDevice(ctx, deviceID, Params{"model_id": modelID}, "model_id")
}

// RenameDevice changes a device's name.
func (c *Client) RenameDevice(ctx context.Context, deviceID, name string) (*Device, error) {
	return c.updateDevice(ctx, deviceID, Params{"name": name}, "name")
}

// DeleteDevice removes a device from the account.
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	return c.call(ctx, http.MethodDelete, c.deviceURL(deviceID), nil, nil, nil)
}

func (c *Client) updateDevice(ctx context.Context, deviceID string, params Params, allowed ...string) (*Device, error) {
	var out struct {
		Device Device `json:"device"`
	}
	if err := c.call(ctx, http.MethodPut, c.deviceURL(deviceID), params, allowed, &out); err != nil {
		return nil, err
	}
	return &out.Device, nil
}

func (c *Client) deviceURL(deviceID string) string {
	return c.URL("/devices/" + url.PathEscape(deviceID))
}
