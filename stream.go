package sensorgrid

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sensorgrid/sensorgrid-go/internal"
	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// maxStreamRecordSize bounds a single SSE record; anything larger aborts the
// connection and triggers a reconnect.
const maxStreamRecordSize = 1 << 20

// EventHandler receives one device event. Handlers run on the stream's
// reading goroutine, so a slow handler delays subsequent events.
type EventHandler func(event types.Event)

// ErrorHandler receives the terminal errors described in StreamOptions.OnError.
type ErrorHandler func(err error)

// StreamOptions configures an event stream subscription.
type StreamOptions struct {
	// DeviceIDs restricts the stream to the given devices.
	DeviceIDs []string
	// DeviceTypes restricts the stream to devices of the given types.
	DeviceTypes []string
	// LabelFilters restricts the stream to devices carrying the given
	// labels, each entry formatted as "key=value" or just "key".
	LabelFilters []string
	// EventTypes restricts which event types the server sends. Empty means
	// all types.
	EventTypes []types.EventType

	// Handlers is the per-event-type callback table. Events whose type has
	// no registered handler are dropped; that is deliberate fan-out, not an
	// error.
	Handlers map[types.EventType]EventHandler

	// OnError is invoked for failures that end the subscription before it
	// ever connected: token acquisition and request construction errors,
	// plus a logout while the stream is running. Transport failures are
	// never delivered here; they are logged and retried.
	OnError ErrorHandler
}

// EventStream is a live subscription to a project's device events.
//
// The stream owns at most one network connection at a time. When the
// connection drops it waits out an exponential backoff, refreshes the access
// token if needed and reconnects, repeating until Close is called. Receiving
// any data resets the backoff to its initial level. Events lost while
// disconnected are not replayed.
type EventStream struct {
	httpClient *http.Client
	auth       internal.TokenProvider
	url        string
	userAgent  string
	logger     *slog.Logger
	handlers   map[types.EventType]EventHandler
	onError    ErrorHandler
	policy     reconnectPolicy

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	mu   sync.Mutex
	body io.ReadCloser // current connection, nil while disconnected
}

// reconnectPolicy is the backoff seam; tests substitute an instrumented
// implementation.
type reconnectPolicy interface {
	Next() time.Duration
	Reset()
}

var newReconnectPolicy = func() reconnectPolicy { return internal.NewReconnectPolicy() }

// SubscribeEvents opens a live event stream for the project and starts
// dispatching events to the handlers in opts. The returned stream is already
// connecting; failures that prevent the first connection are delivered to
// opts.OnError.
//
// The stream keeps running until Close is called, the context is cancelled,
// or the client is logged out.
func (c *Client) SubscribeEvents(ctx context.Context, projectID string, opts *StreamOptions) (*EventStream, error) {
	if opts == nil {
		opts = &StreamOptions{}
	}

	u, err := c.client.BaseURL.Parse("projects/" + projectID + "/devices:stream")
	if err != nil {
		return nil, &sgerrors.TransportError{Err: err}
	}

	q := url.Values{}
	for _, id := range opts.DeviceIDs {
		q.Add("device_ids", id)
	}
	for _, t := range opts.DeviceTypes {
		q.Add("device_types", t)
	}
	for _, f := range opts.LabelFilters {
		q.Add("label_filters", f)
	}
	for _, t := range opts.EventTypes {
		q.Add("event_types", string(t))
	}
	u.RawQuery = q.Encode()

	handlers := make(map[types.EventType]EventHandler, len(opts.Handlers))
	for t, h := range opts.Handlers {
		handlers[t] = h
	}

	streamCtx, cancel := context.WithCancel(ctx)

	s := &EventStream{
		httpClient: c.streamClient,
		auth:       c.auth,
		url:        u.String(),
		userAgent:  c.config.UserAgent,
		logger:     c.logger,
		handlers:   handlers,
		onError:    opts.OnError,
		policy:     newReconnectPolicy(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	go s.run(streamCtx)

	return s, nil
}

// Close terminates the subscription. It is idempotent: repeated calls have
// no additional effect. Close cancels an in-flight connection attempt and
// any pending backoff wait; once it returns, no further reconnect attempts
// are scheduled.
func (s *EventStream) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.mu.Lock()
		if s.body != nil {
			s.body.Close()
		}
		s.mu.Unlock()
	})
}

// Done is closed when the stream's goroutine has fully stopped, either after
// Close or after a terminal error was delivered to OnError.
func (s *EventStream) Done() <-chan struct{} {
	return s.done
}

// run drives the connect / stream / backoff / reconnect cycle until the
// stream is closed or hits a terminal error.
func (s *EventStream) run(ctx context.Context) {
	defer close(s.done)

	connectedEver := false

	for {
		if s.closed.Load() || ctx.Err() != nil {
			return
		}

		connected, err := s.connect(ctx)
		if connected {
			connectedEver = true
		}

		if s.closed.Load() || ctx.Err() != nil {
			return
		}

		if err != nil {
			if s.isTerminal(err, connectedEver) {
				s.logger.ErrorContext(ctx, "event stream terminated", "err", err)
				s.reportError(err)
				return
			}
			s.logger.WarnContext(ctx, "event stream connection lost", "err", err)
		}

		delay := s.policy.Next()
		s.logger.DebugContext(ctx, "reconnecting event stream", "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// isTerminal decides whether an error ends the subscription instead of being
// retried. A logout always does; auth and request-construction failures do
// when the stream never managed to connect. HTTP and transport failures are
// always retried.
func (s *EventStream) isTerminal(err error, connectedEver bool) bool {
	if sgerrors.KindOf(err) == sgerrors.KindLoggedOut {
		return true
	}
	if connectedEver {
		return false
	}
	var authErr *sgerrors.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var apiErr *sgerrors.APIError
	var transportErr *sgerrors.TransportError
	if !errors.As(err, &apiErr) && !errors.As(err, &transportErr) {
		// Request construction failed; retrying cannot help.
		return true
	}
	return false
}

func (s *EventStream) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// connect performs one connection attempt and, on success, streams records
// until the connection ends. connected reports whether streaming began.
func (s *EventStream) connect(ctx context.Context) (connected bool, err error) {
	token, err := s.auth.Token(ctx)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, &sgerrors.TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return false, &sgerrors.APIError{
			Kind:       sgerrors.KindFromStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if !s.adoptBody(resp.Body) {
		// Closed while the request was in flight.
		resp.Body.Close()
		return true, nil
	}
	defer s.releaseBody()

	s.logger.DebugContext(ctx, "event stream connected", "url", req.URL.Path)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamRecordSize)
	scanner.Split(internal.ScanRecords)

	for scanner.Scan() {
		// The server sent something, so the link is healthy.
		s.policy.Reset()

		payload, ok := internal.DataPayload(scanner.Bytes())
		if !ok {
			continue
		}

		var record types.StreamRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			// Per-record isolation: a bad record never ends the connection.
			s.logger.ErrorContext(ctx, "dropping malformed stream record",
				"payload", string(payload), "err", err)
			continue
		}

		s.dispatch(record.Result.Event)
	}

	if err := scanner.Err(); err != nil {
		return true, &sgerrors.TransportError{Err: err}
	}
	// Server closed the stream cleanly; reconnect anyway.
	return true, nil
}

func (s *EventStream) dispatch(event types.Event) {
	if handler, ok := s.handlers[event.EventType]; ok {
		handler(event)
	}
}

// adoptBody records the live connection so Close can sever it. Returns false
// if the stream was closed while connecting.
func (s *EventStream) adoptBody(body io.ReadCloser) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.body = body
	return true
}

func (s *EventStream) releaseBody() {
	s.mu.Lock()
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.mu.Unlock()
}
