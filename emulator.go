package sensorgrid

import (
	"context"
	"net/http"

	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// CreateEmulatedDevice creates an emulated device of the given type in the
// project. Emulated devices behave like real ones but only emit events
// published through PublishEmulatedEvent.
func (c *Client) CreateEmulatedDevice(ctx context.Context, projectID, deviceType string, labels map[string]string) (*types.Device, error) {
	body := map[string]any{
		"type":   deviceType,
		"labels": labels,
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+projectID+"/devices", nil, body)
	if err != nil {
		return nil, err
	}

	var device types.Device
	if err := c.client.Do(req, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// DeleteEmulatedDevice deletes an emulated device. Real devices cannot be
// deleted through the API.
func (c *Client) DeleteEmulatedDevice(ctx context.Context, projectID, deviceID string) error {
	req, err := c.client.NewRequest(ctx, http.MethodDelete, "projects/"+projectID+"/devices/"+deviceID, nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// PublishEmulatedEvent injects an event as if the emulated device had
// emitted it: it reaches streams, data connectors and the device's reported
// state like any real event.
func (c *Client) PublishEmulatedEvent(ctx context.Context, projectID, deviceID string, event *types.Event) error {
	path := "projects/" + projectID + "/devices/" + deviceID + ":publish"
	req, err := c.client.NewRequest(ctx, http.MethodPost, path, nil, event)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}
