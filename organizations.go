package sensorgrid

import (
	"context"
	"net/http"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListOrganizations returns every organization the authenticated account
// belongs to, across all pages.
func (c *Client) ListOrganizations(ctx context.Context) ([]types.Organization, error) {
	return internal.List[types.Organization](ctx, c.client, "organizations", nil, "organizations")
}

// GetOrganization retrieves a single organization by ID.
func (c *Client) GetOrganization(ctx context.Context, organizationID string) (*types.Organization, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "organizations/"+organizationID, nil, nil)
	if err != nil {
		return nil, err
	}

	var org types.Organization
	if err := c.client.Do(req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}
