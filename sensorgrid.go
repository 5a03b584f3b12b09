package sensorgrid

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sensorgrid/sensorgrid-go/internal"
	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
)

const (
	// DefaultBaseURL is the default SensorGrid API base URL.
	DefaultBaseURL = "https://api.sensorgrid.io/v2/"
	// DefaultTokenURL is the default OAuth2 token endpoint.
	DefaultTokenURL = "https://identity.sensorgrid.io/oauth2/token"
	// DefaultUserAgent is the default user agent string.
	DefaultUserAgent = "sensorgrid-go/0.9"
	// DefaultTimeout is the default HTTP client timeout for CRUD requests.
	// Stream connections use a separate client without a timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds the configuration for the SensorGrid client.
//
// Authentication uses a service account key: the key ID, the key secret and
// the service account email. Create keys in the web console or through the
// service account API.
type Config struct {
	// Email is the service account email. Required.
	Email string

	// KeyID is the service account key ID. Required.
	KeyID string

	// Secret is the service account key secret. Required.
	Secret string

	// BaseURL for the SensorGrid API.
	// Defaults to DefaultBaseURL if not specified.
	BaseURL string

	// TokenURL for the OAuth2 token endpoint.
	// Defaults to DefaultTokenURL if not specified.
	TokenURL string

	// UserAgent string sent with every request.
	// Defaults to DefaultUserAgent if not specified.
	UserAgent string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	// Customize this to set custom timeouts, proxies, or other HTTP behavior.
	HTTPClient *http.Client

	// RequestsPerMinute caps client-side request throughput before requests
	// reach the API. Zero uses the default.
	RequestsPerMinute float64

	// RateLimitBurst allows short spikes above the steady-state rate.
	// Zero uses the default.
	RateLimitBurst int

	// Logger for structured diagnostics.
	// Optional. If provided, debug information is logged during API calls
	// and stream lifecycle transitions.
	Logger *slog.Logger
}

// Client is the SensorGrid API client. It provides typed operations for
// every REST resource plus event stream subscriptions, sharing one
// authenticator so CRUD calls and streams reuse the same cached token.
//
// Create the client with NewClient, then call Connect before issuing
// requests:
//
//	client, err := sensorgrid.NewClient(&sensorgrid.Config{
//		Email:  "sa@example.serviceaccount.sensorgrid.io",
//		KeyID:  "key-id",
//		Secret: "key-secret",
//	})
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//
//	devices, err := client.ListDevices(ctx, projectID, nil)
type Client struct {
	client *internal.Client
	auth   *internal.Authenticator
	config *Config
	logger *slog.Logger

	// streamClient is the CRUD client minus the timeout; stream connections
	// stay open indefinitely.
	streamClient *http.Client
}

// NewClient creates a new SensorGrid client with the provided configuration.
// It validates the configuration and sets up authentication, but performs no
// network I/O. Call Connect to authenticate.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &sgerrors.ConfigError{Message: "config cannot be nil"}
	}
	if config.Email == "" {
		return nil, &sgerrors.ConfigError{Field: "Email", Message: "service account email is required"}
	}
	if config.KeyID == "" {
		return nil, &sgerrors.ConfigError{Field: "KeyID", Message: "service account key ID is required"}
	}
	if config.Secret == "" {
		return nil, &sgerrors.ConfigError{Field: "Secret", Message: "service account key secret is required"}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.TokenURL == "" {
		config.TokenURL = DefaultTokenURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	auth, err := internal.NewAuthenticator(
		config.HTTPClient,
		internal.Credentials{Email: config.Email, KeyID: config.KeyID, Secret: config.Secret},
		config.TokenURL,
		logger,
	)
	if err != nil {
		return nil, err
	}

	pipeline, err := internal.NewClient(
		config.HTTPClient,
		auth,
		config.BaseURL,
		config.UserAgent,
		&internal.RateLimitConfig{
			RequestsPerMinute: config.RequestsPerMinute,
			Burst:             config.RateLimitBurst,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: pipeline,
		auth:   auth,
		config: config,
		logger: logger,
		streamClient: &http.Client{
			Transport: config.HTTPClient.Transport,
		},
	}, nil
}

// Connect authenticates with the token endpoint and enables automatic token
// refresh. It is safe to call Connect multiple times; each call revalidates
// the credentials, which is also how a client recovers after Logout.
func (c *Client) Connect(ctx context.Context) error {
	return c.auth.Login(ctx)
}

// Logout discards the cached token and disables automatic refresh. All
// subsequent operations fail fast with KindLoggedOut until Connect is called
// again. Streams already running will surface the failure on their error
// callback when they next need a token.
func (c *Client) Logout() {
	c.auth.Logout()
}
