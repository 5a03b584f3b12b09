package sensorgrid

import (
	"context"

	"github.com/sensorgrid/sensorgrid-go/internal"
)

// ListProjectPermissions returns the permissions the authenticated account
// holds in the given project.
func (c *Client) ListProjectPermissions(ctx context.Context, projectID string) ([]string, error) {
	return internal.List[string](ctx, c.client, "projects/"+projectID+"/permissions", nil, "permissions")
}

// ListOrganizationPermissions returns the permissions the authenticated
// account holds in the given organization.
func (c *Client) ListOrganizationPermissions(ctx context.Context, organizationID string) ([]string, error) {
	return internal.List[string](ctx, c.client, "organizations/"+organizationID+"/permissions", nil, "permissions")
}
