package sensorgrid

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListProjectsOptions filters project listings.
type ListProjectsOptions struct {
	// Organization restricts results to one organization's projects,
	// given as an organization ID.
	Organization string
	// Query does a free-text search over display names.
	Query string
}

// ListProjects returns every project the authenticated account has access
// to, across all pages.
func (c *Client) ListProjects(ctx context.Context, opts *ListProjectsOptions) ([]types.Project, error) {
	q := url.Values{}
	if opts != nil {
		if opts.Organization != "" {
			q.Set("organization", "organizations/"+opts.Organization)
		}
		if opts.Query != "" {
			q.Set("query", opts.Query)
		}
	}
	return internal.List[types.Project](ctx, c.client, "projects", q, "projects")
}

// GetProject retrieves a single project by ID.
func (c *Client) GetProject(ctx context.Context, projectID string) (*types.Project, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "projects/"+projectID, nil, nil)
	if err != nil {
		return nil, err
	}

	var project types.Project
	if err := c.client.Do(req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject creates a project under the given organization.
func (c *Client) CreateProject(ctx context.Context, organizationID, displayName string) (*types.Project, error) {
	body := map[string]string{
		"displayName":  displayName,
		"organization": "organizations/" + organizationID,
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects", nil, body)
	if err != nil {
		return nil, err
	}

	var project types.Project
	if err := c.client.Do(req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject renames a project.
func (c *Client) UpdateProject(ctx context.Context, projectID, displayName string) (*types.Project, error) {
	body := map[string]string{"displayName": displayName}

	req, err := c.client.NewRequest(ctx, http.MethodPatch, "projects/"+projectID, nil, body)
	if err != nil {
		return nil, err
	}

	var project types.Project
	if err := c.client.Do(req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject deletes a project. Only projects without devices can be
// deleted.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	req, err := c.client.NewRequest(ctx, http.MethodDelete, "projects/"+projectID, nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}
