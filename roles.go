package sensorgrid

import (
	"context"
	"net/http"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListRoles returns every role that can be granted to members.
func (c *Client) ListRoles(ctx context.Context) ([]types.Role, error) {
	return internal.List[types.Role](ctx, c.client, "roles", nil, "roles")
}

// GetRole retrieves a single role by ID, e.g. "project.user".
func (c *Client) GetRole(ctx context.Context, roleID string) (*types.Role, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "roles/"+roleID, nil, nil)
	if err != nil {
		return nil, err
	}

	var role types.Role
	if err := c.client.Do(req, &role); err != nil {
		return nil, err
	}
	return &role, nil
}
