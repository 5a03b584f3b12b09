// Package errors defines the error taxonomy shared by the SensorGrid API client.
package errors

import (
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the failure categories the API client
// can produce. Callers are expected to branch on Kind rather than on concrete
// error types.
type Kind int

const (
	// KindUnknown covers decode failures and unrecognized HTTP statuses.
	KindUnknown Kind = iota
	// KindLoggedOut means the authenticator was explicitly logged out and
	// will not refresh tokens until Login is called again.
	KindLoggedOut
	// KindBadRequest maps HTTP 400.
	KindBadRequest
	// KindUnauthorized maps HTTP 401.
	KindUnauthorized
	// KindForbidden maps HTTP 403.
	KindForbidden
	// KindNotFound maps HTTP 404.
	KindNotFound
	// KindConflict maps HTTP 409.
	KindConflict
	// KindInternalServer maps HTTP 500.
	KindInternalServer
	// KindServiceUnavailable maps HTTP 503.
	KindServiceUnavailable
	// KindGatewayTimeout maps HTTP 504.
	KindGatewayTimeout
	// KindServerUnavailable means the request never produced an HTTP
	// response (DNS failure, connection refused, closed mid-flight).
	KindServerUnavailable
	// KindRateLimited means the transparent retry budget for HTTP 429
	// responses was exhausted. Individual 429 responses are retried
	// internally and never surface.
	KindRateLimited
	// KindDecode means a response body could not be decoded into the
	// expected shape.
	KindDecode
	// KindIdentifierParse means a resource name did not have the expected
	// "collection/id/.../id" structure.
	KindIdentifierParse
	// KindDurationParse means a latency string in a metrics payload could
	// not be parsed as a duration.
	KindDurationParse
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindLoggedOut:          "logged out",
	KindBadRequest:         "bad request",
	KindUnauthorized:       "unauthorized",
	KindForbidden:          "forbidden",
	KindNotFound:           "not found",
	KindConflict:           "conflict",
	KindInternalServer:     "internal server error",
	KindServiceUnavailable: "service unavailable",
	KindGatewayTimeout:     "gateway timeout",
	KindServerUnavailable:  "server unavailable",
	KindRateLimited:        "rate limited",
	KindDecode:             "decode failure",
	KindIdentifierParse:    "identifier parse failure",
	KindDurationParse:      "duration parse failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindFromStatus maps an HTTP status code to its error Kind. Statuses that
// have no dedicated category, including 501, map to KindUnknown.
func KindFromStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusInternalServerError:
		return KindInternalServer
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	case http.StatusGatewayTimeout:
		return KindGatewayTimeout
	default:
		return KindUnknown
	}
}

// kinder is implemented by every error type in this package.
type kinder interface {
	ErrorKind() Kind
}

// KindOf extracts the Kind from any error produced by this module, unwrapping
// as needed. Errors from outside the taxonomy report KindUnknown.
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(kinder); ok {
			return k.ErrorKind()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return KindUnknown
		}
		err = u.Unwrap()
	}
	return KindUnknown
}

// APIError represents a classified non-2xx HTTP response from the API.
type APIError struct {
	// Kind is the category derived from StatusCode.
	Kind Kind
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Body contains the raw response body, which may hold more detail.
	Body string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api error (%s): status code %d, body: %q", e.Kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api error (%s): status code %d", e.Kind, e.StatusCode)
}

// ErrorKind returns the error's category.
func (e *APIError) ErrorKind() Kind { return e.Kind }

// TransportError indicates the request never produced an HTTP response.
type TransportError struct {
	// Err is the underlying network error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorKind returns KindServerUnavailable.
func (e *TransportError) ErrorKind() Kind { return KindServerUnavailable }

// AuthError indicates a failure acquiring or refreshing an access token.
type AuthError struct {
	// Kind is KindLoggedOut for fail-fast logged-out errors, otherwise the
	// category of the token endpoint failure.
	Kind Kind
	// StatusCode is the token endpoint's HTTP status, if a response arrived.
	StatusCode int
	// Body contains the raw token endpoint response body, if any.
	Body string
	// Err is the underlying error, if any.
	Err error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("auth error (%s)", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status code %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += fmt.Sprintf(", body: %q", e.Body)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(", err: %v", e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrorKind returns the error's category.
func (e *AuthError) ErrorKind() Kind { return e.Kind }

// DecodeError indicates a response body did not decode into the expected
// shape. The raw body is preserved for diagnosis.
type DecodeError struct {
	// Operation names the call that produced the undecodable body.
	Operation string
	// Body contains the raw payload that failed to decode.
	Body string
	// Err is the underlying json error.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("decode error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorKind returns KindDecode.
func (e *DecodeError) ErrorKind() Kind { return KindDecode }

// IdentifierError indicates a resource name could not be parsed into a local
// identifier.
type IdentifierError struct {
	// Name is the malformed resource name.
	Name string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("identifier parse error: malformed resource name %q", e.Name)
}

// ErrorKind returns KindIdentifierParse.
func (e *IdentifierError) ErrorKind() Kind { return KindIdentifierParse }

// DurationError indicates a latency string in a metrics payload could not be
// parsed.
type DurationError struct {
	// Value is the malformed duration string.
	Value string
	// Err is the underlying parse error.
	Err error
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("duration parse error: %q: %v", e.Value, e.Err)
}

func (e *DurationError) Unwrap() error { return e.Err }

// ErrorKind returns KindDurationParse.
func (e *DurationError) ErrorKind() Kind { return KindDurationParse }

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error.
	Field string
	// Message contains the detailed error message.
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// ErrorKind returns KindUnknown; configuration errors sit outside the HTTP
// taxonomy.
func (e *ConfigError) ErrorKind() Kind { return KindUnknown }
