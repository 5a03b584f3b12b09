// Package types contains the wire types exchanged with the SensorGrid API.
package types

import (
	"encoding/json"
	"strings"
	"time"

	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
)

// IDFromName extracts the local identifier from a hierarchical resource name
// such as "projects/abc123" or "projects/abc123/devices/def456". The server
// assigns resource names; the identifier is always the trailing path segment.
//
// Returns an IdentifierError if the name does not have an even number of
// non-empty segments.
func IDFromName(name string) (string, error) {
	segments := strings.Split(name, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", &sgerrors.IdentifierError{Name: name}
	}
	for _, s := range segments {
		if s == "" {
			return "", &sgerrors.IdentifierError{Name: name}
		}
	}
	return segments[len(segments)-1], nil
}

// Project groups devices and members under an organization.
type Project struct {
	// Name is the resource name, e.g. "projects/abc123".
	Name string `json:"name"`
	// DisplayName is the human-readable project name.
	DisplayName string `json:"displayName"`
	// Organization is the resource name of the owning organization.
	Organization string `json:"organization"`
	// OrganizationDisplayName is the display name of the owning organization.
	OrganizationDisplayName string `json:"organizationDisplayName,omitempty"`
	// SensorCount is the number of sensors in the project.
	SensorCount int `json:"sensorCount"`
	// CloudConnectorCount is the number of cloud connectors in the project.
	CloudConnectorCount int `json:"cloudConnectorCount"`
	// Inventory reports whether this is the organization's inventory project.
	Inventory bool `json:"inventory"`
}

// ID returns the local identifier extracted from the project's resource name.
func (p Project) ID() (string, error) { return IDFromName(p.Name) }

// Device is a sensor or cloud connector belonging to a project.
type Device struct {
	// Name is the resource name, e.g. "projects/abc123/devices/def456".
	Name string `json:"name"`
	// Type is the device type, e.g. "temperature" or "touch".
	Type string `json:"type"`
	// ProductNumber is the device's product number, if known.
	ProductNumber string `json:"productNumber,omitempty"`
	// Labels holds the device's key/value labels.
	Labels map[string]string `json:"labels,omitempty"`
}

// ID returns the local identifier extracted from the device's resource name.
func (d Device) ID() (string, error) { return IDFromName(d.Name) }

// Organization is the billing and membership root above projects.
type Organization struct {
	// Name is the resource name, e.g. "organizations/abc123".
	Name string `json:"name"`
	// DisplayName is the human-readable organization name.
	DisplayName string `json:"displayName"`
}

// ID returns the local identifier extracted from the organization's resource name.
func (o Organization) ID() (string, error) { return IDFromName(o.Name) }

// Member is a user or service account with access to a project or organization.
type Member struct {
	// Name is the resource name, e.g. "projects/abc123/members/def456".
	Name string `json:"name"`
	// DisplayName is the member's display name.
	DisplayName string `json:"displayName"`
	// Email is the member's email address.
	Email string `json:"email"`
	// Roles lists the resource names of the member's roles.
	Roles []string `json:"roles"`
	// Status is "PENDING" until an invited member accepts, then "ACCEPTED".
	Status string `json:"status,omitempty"`
	// AccountType is "USER" or "SERVICE_ACCOUNT".
	AccountType string `json:"accountType,omitempty"`
	// CreateTime is when the member was added.
	CreateTime time.Time `json:"createTime,omitzero"`
}

// ID returns the local identifier extracted from the member's resource name.
func (m Member) ID() (string, error) { return IDFromName(m.Name) }

// Role is a named set of permissions that can be granted to members.
type Role struct {
	// Name is the resource name, e.g. "roles/project.user".
	Name string `json:"name"`
	// DisplayName is the human-readable role name.
	DisplayName string `json:"displayName"`
	// Description explains what the role grants.
	Description string `json:"description"`
	// Permissions lists the permissions included in the role.
	Permissions []string `json:"permissions"`
}

// ID returns the local identifier extracted from the role's resource name.
func (r Role) ID() (string, error) { return IDFromName(r.Name) }

// ServiceAccount is a machine identity scoped to a project.
type ServiceAccount struct {
	// Name is the resource name, e.g. "projects/abc123/serviceaccounts/def456".
	Name string `json:"name"`
	// Email is the server-assigned service account email.
	Email string `json:"email"`
	// DisplayName is the human-readable service account name.
	DisplayName string `json:"displayName"`
	// EnableBasicAuth allows the account's keys to be used with HTTP basic auth.
	EnableBasicAuth bool `json:"enableBasicAuth"`
	// CreateTime is when the service account was created.
	CreateTime time.Time `json:"createTime,omitzero"`
	// UpdateTime is when the service account was last modified.
	UpdateTime time.Time `json:"updateTime,omitzero"`
}

// ID returns the local identifier extracted from the service account's resource name.
func (s ServiceAccount) ID() (string, error) { return IDFromName(s.Name) }

// ServiceAccountKey is a credential belonging to a service account. The
// secret is only present in the response that created the key.
type ServiceAccountKey struct {
	// Name is the resource name, e.g.
	// "projects/abc123/serviceaccounts/def456/keys/ghi789".
	Name string `json:"name"`
	// KeyID is the key's local identifier.
	KeyID string `json:"id"`
	// Secret is returned exactly once, on key creation. Never stored by the
	// server in retrievable form.
	Secret string `json:"secret,omitempty"`
	// CreateTime is when the key was created.
	CreateTime time.Time `json:"createTime,omitzero"`
}

// ID returns the local identifier extracted from the key's resource name.
func (k ServiceAccountKey) ID() (string, error) { return IDFromName(k.Name) }

// DataConnector forwards device events to an external endpoint.
type DataConnector struct {
	// Name is the resource name, e.g. "projects/abc123/dataconnectors/def456".
	Name string `json:"name"`
	// DisplayName is the human-readable connector name.
	DisplayName string `json:"displayName"`
	// Type is the connector type; currently only "HTTP_PUSH".
	Type string `json:"type"`
	// Status is "ACTIVE", "USER_DISABLED" or "SYSTEM_DISABLED".
	Status string `json:"status,omitempty"`
	// Events restricts forwarding to the listed event types. Empty means all.
	Events []string `json:"events,omitempty"`
	// Labels lists device label keys included with forwarded events.
	Labels []string `json:"labels,omitempty"`
	// HTTPConfig holds the push target configuration for HTTP_PUSH connectors.
	HTTPConfig *HTTPPushConfig `json:"httpConfig,omitempty"`
}

// ID returns the local identifier extracted from the connector's resource name.
func (d DataConnector) ID() (string, error) { return IDFromName(d.Name) }

// HTTPPushConfig is the push target of an HTTP_PUSH data connector.
type HTTPPushConfig struct {
	// URL is the endpoint events are pushed to.
	URL string `json:"url"`
	// SignatureSecret signs pushed payloads so the receiver can verify origin.
	SignatureSecret string `json:"signatureSecret,omitempty"`
	// Headers are extra headers added to every push.
	Headers map[string]string `json:"headers,omitempty"`
}

// DataConnectorMetrics reports a connector's delivery statistics over the
// trailing three hours.
type DataConnectorMetrics struct {
	// SuccessCount is the number of successfully delivered events.
	SuccessCount int `json:"successCount"`
	// ErrorCount is the number of failed deliveries.
	ErrorCount int `json:"errorCount"`
	// Latency99p is the 99th percentile delivery latency.
	Latency99p Latency `json:"latency99p"`
}

// Latency is a duration that travels on the wire as a string such as "0.123s".
// Decoding a malformed value fails with a DurationError rather than silently
// defaulting to zero.
type Latency time.Duration

// Duration returns the latency as a time.Duration.
func (l Latency) Duration() time.Duration { return time.Duration(l) }

// UnmarshalJSON implements json.Unmarshaler.
func (l *Latency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &sgerrors.DurationError{Value: string(data), Err: err}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return &sgerrors.DurationError{Value: s, Err: err}
	}
	*l = Latency(d)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l Latency) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(l).String())
}
