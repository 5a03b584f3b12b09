package sensorgrid

import (
	"context"
	"net/http"
	"strings"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListProjectMembers returns every member of the project, across all pages.
func (c *Client) ListProjectMembers(ctx context.Context, projectID string) ([]types.Member, error) {
	return c.listMembers(ctx, "projects/"+projectID)
}

// ListOrganizationMembers returns every member of the organization, across
// all pages.
func (c *Client) ListOrganizationMembers(ctx context.Context, organizationID string) ([]types.Member, error) {
	return c.listMembers(ctx, "organizations/"+organizationID)
}

func (c *Client) listMembers(ctx context.Context, parent string) ([]types.Member, error) {
	return internal.List[types.Member](ctx, c.client, parent+"/members", nil, "members")
}

// GetProjectMember retrieves a single project member by ID.
func (c *Client) GetProjectMember(ctx context.Context, projectID, memberID string) (*types.Member, error) {
	return c.getMember(ctx, "projects/"+projectID+"/members/"+memberID)
}

// GetOrganizationMember retrieves a single organization member by ID.
func (c *Client) GetOrganizationMember(ctx context.Context, organizationID, memberID string) (*types.Member, error) {
	return c.getMember(ctx, "organizations/"+organizationID+"/members/"+memberID)
}

func (c *Client) getMember(ctx context.Context, path string) (*types.Member, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var member types.Member
	if err := c.client.Do(req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// CreateProjectMember invites an account to the project with the given
// roles. The member stays in "PENDING" status until the invite is accepted.
func (c *Client) CreateProjectMember(ctx context.Context, projectID, email string, roles []string) (*types.Member, error) {
	body := map[string]any{
		"email": email,
		"roles": roleNames(roles),
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+projectID+"/members", nil, body)
	if err != nil {
		return nil, err
	}

	var member types.Member
	if err := c.client.Do(req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateProjectMember replaces a member's roles.
func (c *Client) UpdateProjectMember(ctx context.Context, projectID, memberID string, roles []string) (*types.Member, error) {
	body := map[string]any{"roles": roleNames(roles)}

	req, err := c.client.NewRequest(ctx, http.MethodPatch, "projects/"+projectID+"/members/"+memberID, nil, body)
	if err != nil {
		return nil, err
	}

	var member types.Member
	if err := c.client.Do(req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// DeleteProjectMember removes a member from the project.
func (c *Client) DeleteProjectMember(ctx context.Context, projectID, memberID string) error {
	req, err := c.client.NewRequest(ctx, http.MethodDelete, "projects/"+projectID+"/members/"+memberID, nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// GetProjectMemberInviteURL returns the pending invite URL for a member that
// has not accepted yet. Fails with KindNotFound once the invite is accepted.
func (c *Client) GetProjectMemberInviteURL(ctx context.Context, projectID, memberID string) (string, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "projects/"+projectID+"/members/"+memberID+":getInviteUrl", nil, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		InviteURL string `json:"inviteUrl"`
	}
	if err := c.client.Do(req, &resp); err != nil {
		return "", err
	}
	return resp.InviteURL, nil
}

// roleNames expands bare role IDs like "project.user" into resource names.
func roleNames(roles []string) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if strings.HasPrefix(r, "roles/") {
			names = append(names, r)
			continue
		}
		names = append(names, "roles/"+r)
	}
	return names
}
