package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
)

const (
	// tokenExpiryMargin is the safety window before expiry within which a
	// cached token is no longer considered valid for reuse.
	tokenExpiryMargin = 60 * time.Second

	// assertionLifetime is the validity period claimed by signed assertions.
	assertionLifetime = time.Hour

	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// Credentials is a long-lived service account key used to obtain short-lived
// access tokens. Immutable after construction.
type Credentials struct {
	// Email is the service account email, used as the assertion issuer.
	Email string
	// KeyID identifies the key, sent in the assertion's kid header.
	KeyID string
	// Secret is the key secret the assertion is signed with.
	Secret string
}

// Authenticator exchanges service account credentials for bearer tokens and
// caches the result. It is safe for concurrent use: refreshes are serialized,
// so simultaneous callers share one in-flight refresh instead of each hitting
// the token endpoint.
type Authenticator struct {
	client   *http.Client
	creds    Credentials
	tokenURL *url.URL
	logger   *slog.Logger

	mu        sync.Mutex
	token     string // includes the scheme prefix, e.g. "Bearer eyJ..."
	expiresAt time.Time
	loggedOut bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewAuthenticator creates an authenticator for the given credentials.
// The authenticator starts logged out; call Login before requesting tokens.
func NewAuthenticator(httpClient *http.Client, creds Credentials, tokenURL string, logger *slog.Logger) (*Authenticator, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parsed, err := url.Parse(tokenURL)
	if err != nil {
		return nil, &sgerrors.AuthError{Err: fmt.Errorf("failed to parse token URL: %w", err)}
	}

	return &Authenticator{
		client:    httpClient,
		creds:     creds,
		tokenURL:  parsed,
		logger:    logger,
		loggedOut: true,
		now:       time.Now,
	}, nil
}

// Login performs an initial token refresh and enables automatic refresh on
// subsequent Token calls. On failure the authenticator stays logged out.
func (a *Authenticator) Login(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.refreshLocked(ctx); err != nil {
		return err
	}
	a.loggedOut = false
	return nil
}

// Logout discards the cached token and makes subsequent Token calls fail
// fast with KindLoggedOut until Login is called again.
func (a *Authenticator) Logout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.expiresAt = time.Time{}
	a.loggedOut = true
}

// Token returns a currently-valid bearer token, including the scheme prefix.
// A cached token is returned without I/O while it has more than 60 seconds of
// validity left; otherwise the token is refreshed first. Callers blocked on a
// concurrent refresh observe its result rather than triggering their own.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loggedOut {
		return "", &sgerrors.AuthError{Kind: sgerrors.KindLoggedOut}
	}

	if a.token != "" && a.expiresAt.Sub(a.now()) > tokenExpiryMargin {
		return a.token, nil
	}

	return a.refreshLocked(ctx)
}

// refreshLocked exchanges a signed assertion for a fresh token. Cached state
// is only replaced on success. Callers must hold a.mu.
func (a *Authenticator) refreshLocked(ctx context.Context) (string, error) {
	now := a.now()

	assertion, err := a.signAssertion(now)
	if err != nil {
		return "", &sgerrors.AuthError{Err: fmt.Errorf("failed to sign assertion: %w", err)}
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &sgerrors.AuthError{Err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &sgerrors.AuthError{Kind: sgerrors.KindServerUnavailable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &sgerrors.AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &sgerrors.AuthError{
			Kind:       sgerrors.KindFromStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &sgerrors.AuthError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("failed to unmarshal token response: %w", err),
		}
	}
	if tokenResp.AccessToken == "" {
		return "", &sgerrors.AuthError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("access token was empty in response"),
		}
	}

	scheme := tokenResp.TokenType
	if scheme == "" {
		scheme = "Bearer"
	}

	a.token = scheme + " " + tokenResp.AccessToken
	a.expiresAt = now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	a.logger.DebugContext(ctx, "refreshed access token", "expires_at", a.expiresAt)

	return a.token, nil
}

// signAssertion builds and signs the JWT-bearer assertion for a refresh at
// the given instant.
func (a *Authenticator) signAssertion(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    a.creds.Email,
		Audience:  jwt.ClaimStrings{a.tokenURL.String()},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = a.creds.KeyID
	return t.SignedString([]byte(a.creds.Secret))
}
