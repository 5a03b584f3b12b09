package sensorgrid

import (
	"context"
	"net/http"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListDataConnectors returns every data connector in the project.
func (c *Client) ListDataConnectors(ctx context.Context, projectID string) ([]types.DataConnector, error) {
	return internal.List[types.DataConnector](ctx, c.client, "projects/"+projectID+"/dataconnectors", nil, "dataConnectors")
}

// GetDataConnector retrieves a single data connector by ID.
func (c *Client) GetDataConnector(ctx context.Context, projectID, connectorID string) (*types.DataConnector, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "projects/"+projectID+"/dataconnectors/"+connectorID, nil, nil)
	if err != nil {
		return nil, err
	}

	var connector types.DataConnector
	if err := c.client.Do(req, &connector); err != nil {
		return nil, err
	}
	return &connector, nil
}

// CreateDataConnector creates a data connector in the project. Name and
// Status are assigned by the server and ignored on input.
func (c *Client) CreateDataConnector(ctx context.Context, projectID string, connector *types.DataConnector) (*types.DataConnector, error) {
	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+projectID+"/dataconnectors", nil, connector)
	if err != nil {
		return nil, err
	}

	var created types.DataConnector
	if err := c.client.Do(req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDataConnector replaces a data connector's configuration.
func (c *Client) UpdateDataConnector(ctx context.Context, projectID, connectorID string, connector *types.DataConnector) (*types.DataConnector, error) {
	req, err := c.client.NewRequest(ctx, http.MethodPatch, "projects/"+projectID+"/dataconnectors/"+connectorID, nil, connector)
	if err != nil {
		return nil, err
	}

	var updated types.DataConnector
	if err := c.client.Do(req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteDataConnector deletes a data connector. Events are no longer
// forwarded as soon as the call returns.
func (c *Client) DeleteDataConnector(ctx context.Context, projectID, connectorID string) error {
	req, err := c.client.NewRequest(ctx, http.MethodDelete, "projects/"+projectID+"/dataconnectors/"+connectorID, nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// SyncDataConnector pushes the current state of every device in the project
// through the connector, bringing the receiving end up to date.
func (c *Client) SyncDataConnector(ctx context.Context, projectID, connectorID string) error {
	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+projectID+"/dataconnectors/"+connectorID+":sync", nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// GetDataConnectorMetrics returns the connector's delivery statistics for
// the trailing three hours.
func (c *Client) GetDataConnectorMetrics(ctx context.Context, projectID, connectorID string) (*types.DataConnectorMetrics, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "projects/"+projectID+"/dataconnectors/"+connectorID+":metrics", nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Metrics types.DataConnectorMetrics `json:"metrics"`
	}
	if err := c.client.Do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Metrics, nil
}
