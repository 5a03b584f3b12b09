package sensorgrid

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListDevicesOptions filters device listings.
type ListDevicesOptions struct {
	// DeviceIDs restricts results to the given device IDs.
	DeviceIDs []string
	// DeviceTypes restricts results to the given device types.
	DeviceTypes []string
	// LabelFilters restricts results to devices carrying the given labels,
	// each entry formatted as "key=value" or just "key".
	LabelFilters []string
	// Query does a free-text search over device identifiers and labels.
	Query string
}

func (o *ListDevicesOptions) query() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	for _, id := range o.DeviceIDs {
		q.Add("device_ids", id)
	}
	for _, t := range o.DeviceTypes {
		q.Add("device_types", t)
	}
	for _, f := range o.LabelFilters {
		q.Add("label_filters", f)
	}
	if o.Query != "" {
		q.Set("query", o.Query)
	}
	return q
}

// ListDevices returns every device in the project matching the options,
// across all pages. Use NewDeviceIterator to consume large projects one page
// at a time instead.
func (c *Client) ListDevices(ctx context.Context, projectID string, opts *ListDevicesOptions) ([]types.Device, error) {
	return internal.List[types.Device](ctx, c.client, "projects/"+projectID+"/devices", opts.query(), "devices")
}

// GetDevice retrieves a single device by project and device ID.
func (c *Client) GetDevice(ctx context.Context, projectID, deviceID string) (*types.Device, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "projects/"+projectID+"/devices/"+deviceID, nil, nil)
	if err != nil {
		return nil, err
	}

	var device types.Device
	if err := c.client.Do(req, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// BatchUpdateLabels adds and removes labels on a set of devices in one
// request. Label additions overwrite existing values for the same key.
func (c *Client) BatchUpdateLabels(ctx context.Context, projectID string, deviceIDs []string, addLabels map[string]string, removeLabels []string) error {
	devices := make([]string, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		devices = append(devices, "projects/"+projectID+"/devices/"+id)
	}

	body := map[string]any{
		"devices":      devices,
		"addLabels":    addLabels,
		"removeLabels": removeLabels,
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+projectID+"/devices:batchUpdate", nil, body)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// TransferDevices moves devices from one project to another. The caller
// needs device update permission in both projects.
func (c *Client) TransferDevices(ctx context.Context, fromProjectID, toProjectID string, deviceIDs []string) error {
	devices := make([]string, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		devices = append(devices, "projects/"+fromProjectID+"/devices/"+id)
	}

	body := map[string]any{"devices": devices}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+toProjectID+"/devices:transfer", nil, body)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}
