package sensorgrid

import (
	"context"
	"net/http"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// ListServiceAccounts returns every service account in the project, across
// all pages.
func (c *Client) ListServiceAccounts(ctx context.Context, projectID string) ([]types.ServiceAccount, error) {
	return internal.List[types.ServiceAccount](ctx, c.client, "projects/"+projectID+"/serviceaccounts", nil, "serviceAccounts")
}

// GetServiceAccount retrieves a single service account by ID.
func (c *Client) GetServiceAccount(ctx context.Context, projectID, serviceAccountID string) (*types.ServiceAccount, error) {
	req, err := c.client.NewRequest(ctx, http.MethodGet, "projects/"+projectID+"/serviceaccounts/"+serviceAccountID, nil, nil)
	if err != nil {
		return nil, err
	}

	var account types.ServiceAccount
	if err := c.client.Do(req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateServiceAccount creates a service account in the project.
func (c *Client) CreateServiceAccount(ctx context.Context, projectID, displayName string, enableBasicAuth bool) (*types.ServiceAccount, error) {
	body := map[string]any{
		"displayName":     displayName,
		"enableBasicAuth": enableBasicAuth,
	}

	req, err := c.client.NewRequest(ctx, http.MethodPost, "projects/"+projectID+"/serviceaccounts", nil, body)
	if err != nil {
		return nil, err
	}

	var account types.ServiceAccount
	if err := c.client.Do(req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateServiceAccount updates a service account's display name and basic
// auth setting.
func (c *Client) UpdateServiceAccount(ctx context.Context, projectID, serviceAccountID, displayName string, enableBasicAuth bool) (*types.ServiceAccount, error) {
	body := map[string]any{
		"displayName":     displayName,
		"enableBasicAuth": enableBasicAuth,
	}

	req, err := c.client.NewRequest(ctx, http.MethodPatch, "projects/"+projectID+"/serviceaccounts/"+serviceAccountID, nil, body)
	if err != nil {
		return nil, err
	}

	var account types.ServiceAccount
	if err := c.client.Do(req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteServiceAccount deletes a service account and all its keys.
func (c *Client) DeleteServiceAccount(ctx context.Context, projectID, serviceAccountID string) error {
	req, err := c.client.NewRequest(ctx, http.MethodDelete, "projects/"+projectID+"/serviceaccounts/"+serviceAccountID, nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}

// ListServiceAccountKeys returns every key belonging to the service account.
func (c *Client) ListServiceAccountKeys(ctx context.Context, projectID, serviceAccountID string) ([]types.ServiceAccountKey, error) {
	path := "projects/" + projectID + "/serviceaccounts/" + serviceAccountID + "/keys"
	return internal.List[types.ServiceAccountKey](ctx, c.client, path, nil, "keys")
}

// GetServiceAccountKey retrieves a single key. The key secret is never
// included; it is only returned by CreateServiceAccountKey.
func (c *Client) GetServiceAccountKey(ctx context.Context, projectID, serviceAccountID, keyID string) (*types.ServiceAccountKey, error) {
	path := "projects/" + projectID + "/serviceaccounts/" + serviceAccountID + "/keys/" + keyID
	req, err := c.client.NewRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var key types.ServiceAccountKey
	if err := c.client.Do(req, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// CreateServiceAccountKey creates a new key for the service account. The
// returned key's Secret field is populated exactly once, in this response;
// store it immediately.
func (c *Client) CreateServiceAccountKey(ctx context.Context, projectID, serviceAccountID string) (*types.ServiceAccountKey, error) {
	path := "projects/" + projectID + "/serviceaccounts/" + serviceAccountID + "/keys"
	req, err := c.client.NewRequest(ctx, http.MethodPost, path, nil, struct{}{})
	if err != nil {
		return nil, err
	}

	var key types.ServiceAccountKey
	if err := c.client.Do(req, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// DeleteServiceAccountKey revokes a key. Tokens already issued against the
// key stay valid until they expire.
func (c *Client) DeleteServiceAccountKey(ctx context.Context, projectID, serviceAccountID, keyID string) error {
	path := "projects/" + projectID + "/serviceaccounts/" + serviceAccountID + "/keys/" + keyID
	req, err := c.client.NewRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return c.client.Do(req, nil)
}
