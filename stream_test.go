package sensorgrid

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// fakePolicy replaces the exponential backoff with a short fixed delay and
// counts how the stream drives it.
type fakePolicy struct {
	delay time.Duration

	mu     sync.Mutex
	nexts  int
	resets int
}

func (p *fakePolicy) Next() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nexts++
	return p.delay
}

func (p *fakePolicy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
}

func (p *fakePolicy) counts() (nexts, resets int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nexts, p.resets
}

func installFakePolicy(t *testing.T, delay time.Duration) *fakePolicy {
	t.Helper()
	p := &fakePolicy{delay: delay}
	orig := newReconnectPolicy
	newReconnectPolicy = func() reconnectPolicy { return p }
	t.Cleanup(func() { newReconnectPolicy = orig })
	return p
}

// newStreamTestClient builds a connected client whose token endpoint and API
// live on the same test server. stream handles GET /v2/projects/p1/devices:stream.
func newStreamTestClient(t *testing.T, stream http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"stream-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v2/projects/p1/devices:stream", stream)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		Email:      "sa@example.serviceaccount.sensorgrid.io",
		KeyID:      "key-id",
		Secret:     "key-secret",
		BaseURL:    server.URL + "/v2",
		TokenURL:   server.URL + "/token",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	return client
}

func writeRecord(t *testing.T, w http.ResponseWriter, data string) {
	t.Helper()
	flusher, ok := w.(http.Flusher)
	require.True(t, ok, "test server must support flushing")
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func temperatureRecord(eventID, deviceID string, value float64) string {
	return fmt.Sprintf(`{"result":{"event":{"eventId":%q,"targetName":"projects/p1/devices/%s","eventType":"temperature","data":{"temperature":{"value":%g,"updateTime":"2025-06-15T10:30:00Z"}},"timestamp":"2025-06-15T10:30:00Z"}}}`,
		eventID, deviceID, value)
}

func waitDone(t *testing.T, s *EventStream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop in time")
	}
}

func TestStreamDeliversEvents(t *testing.T) {
	installFakePolicy(t, 10*time.Millisecond)

	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stream-token", r.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		writeRecord(t, w, temperatureRecord("ev1", "d1", 21.5))
		writeRecord(t, w, temperatureRecord("ev2", "d2", 22.5))
		// No handler is registered for touch events; the stream drops them.
		writeRecord(t, w, `{"result":{"event":{"eventId":"ev3","targetName":"projects/p1/devices/d3","eventType":"touch","data":{"touch":{"updateTime":"2025-06-15T10:30:00Z"}},"timestamp":"2025-06-15T10:30:00Z"}}}`)
		<-r.Context().Done()
	})

	events := make(chan types.Event, 8)
	stream, err := client.SubscribeEvents(context.Background(), "p1", &StreamOptions{
		Handlers: map[types.EventType]EventHandler{
			types.EventTypeTemperature: func(e types.Event) { events <- e },
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	var got []types.Event
	for range 2 {
		select {
		case e := <-events:
			got = append(got, e)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, "ev1", got[0].EventID)
	assert.Equal(t, 21.5, got[0].Data.Temperature.Value)
	assert.Equal(t, "ev2", got[1].EventID)

	id, err := got[0].DeviceID()
	require.NoError(t, err)
	assert.Equal(t, "d1", id)

	// The touch event must not leak into the temperature handler.
	select {
	case e := <-events:
		t.Fatalf("unexpected event %q", e.EventID)
	case <-time.After(50 * time.Millisecond):
	}

	stream.Close()
	waitDone(t, stream)
}

func TestStreamQueryParameters(t *testing.T) {
	installFakePolicy(t, 10*time.Millisecond)

	queries := make(chan map[string][]string, 1)
	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case queries <- r.URL.Query():
		default:
		}
		<-r.Context().Done()
	})

	stream, err := client.SubscribeEvents(context.Background(), "p1", &StreamOptions{
		DeviceIDs:    []string{"d1", "d2"},
		DeviceTypes:  []string{"temperature"},
		LabelFilters: []string{"room=kitchen"},
		EventTypes:   []types.EventType{types.EventTypeTemperature, types.EventTypeTouch},
	})
	require.NoError(t, err)
	defer stream.Close()

	select {
	case q := <-queries:
		assert.Equal(t, []string{"d1", "d2"}, q["device_ids"])
		assert.Equal(t, []string{"temperature"}, q["device_types"])
		assert.Equal(t, []string{"room=kitchen"}, q["label_filters"])
		assert.Equal(t, []string{"temperature", "touch"}, q["event_types"])
	case <-time.After(5 * time.Second):
		t.Fatal("stream never connected")
	}

	stream.Close()
	waitDone(t, stream)
}

func TestStreamIsolatesMalformedRecords(t *testing.T) {
	installFakePolicy(t, 10*time.Millisecond)

	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeRecord(t, w, temperatureRecord("ev1", "d1", 20))
		writeRecord(t, w, `{"result": not json at all`)
		writeRecord(t, w, temperatureRecord("ev2", "d1", 21))
		<-r.Context().Done()
	})

	events := make(chan types.Event, 8)
	stream, err := client.SubscribeEvents(context.Background(), "p1", &StreamOptions{
		Handlers: map[types.EventType]EventHandler{
			types.EventTypeTemperature: func(e types.Event) { events <- e },
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	var ids []string
	for range 2 {
		select {
		case e := <-events:
			ids = append(ids, e.EventID)
		case <-time.After(5 * time.Second):
			t.Fatal("events around the malformed record must still arrive")
		}
	}
	assert.Equal(t, []string{"ev1", "ev2"}, ids)

	stream.Close()
	waitDone(t, stream)
}

func TestStreamReconnectsAfterDisconnect(t *testing.T) {
	policy := installFakePolicy(t, 10*time.Millisecond)

	var connections atomic.Int64
	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := connections.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		writeRecord(t, w, temperatureRecord(fmt.Sprintf("ev%d", n), "d1", 20))
		if n == 1 {
			// Dropping the first connection forces a reconnect.
			return
		}
		<-r.Context().Done()
	})

	events := make(chan types.Event, 8)
	stream, err := client.SubscribeEvents(context.Background(), "p1", &StreamOptions{
		Handlers: map[types.EventType]EventHandler{
			types.EventTypeTemperature: func(e types.Event) { events <- e },
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	var ids []string
	for range 2 {
		select {
		case e := <-events:
			ids = append(ids, e.EventID)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for reconnect")
		}
	}
	assert.Equal(t, []string{"ev1", "ev2"}, ids)
	assert.Equal(t, int64(2), connections.Load())

	nexts, resets := policy.counts()
	assert.GreaterOrEqual(t, nexts, 1, "a reconnect must consult the backoff policy")
	assert.GreaterOrEqual(t, resets, 2, "received data must reset the backoff")

	stream.Close()
	waitDone(t, stream)
}

func TestStreamCloseStopsReconnecting(t *testing.T) {
	installFakePolicy(t, 20*time.Millisecond)

	var connections atomic.Int64
	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		connections.Add(1)
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	})

	stream, err := client.SubscribeEvents(context.Background(), "p1", &StreamOptions{
		OnError: func(err error) {
			t.Errorf("server errors must be retried, not surfaced: %v", err)
		},
	})
	require.NoError(t, err)

	// Let at least one failing attempt happen, then close.
	require.Eventually(t, func() bool { return connections.Load() >= 1 },
		5*time.Second, 5*time.Millisecond)

	stream.Close()
	stream.Close() // idempotent
	waitDone(t, stream)

	settled := connections.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, connections.Load(), "no attempts may happen after Close")
}

func TestStreamLoggedOutIsTerminal(t *testing.T) {
	installFakePolicy(t, 10*time.Millisecond)

	var connections atomic.Int64
	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		connections.Add(1)
		<-r.Context().Done()
	})

	client.Logout()

	errs := make(chan error, 1)
	stream, err := client.SubscribeEvents(context.Background(), "p1", &StreamOptions{
		OnError: func(err error) { errs <- err },
	})
	require.NoError(t, err)
	defer stream.Close()

	select {
	case err := <-errs:
		assert.Equal(t, sgerrors.KindLoggedOut, sgerrors.KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("logged-out stream must surface a terminal error")
	}

	waitDone(t, stream)
	assert.Equal(t, int64(0), connections.Load(), "no connection may be attempted while logged out")
}

func TestStreamContextCancelStops(t *testing.T) {
	installFakePolicy(t, 10*time.Millisecond)

	client := newStreamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeRecord(t, w, temperatureRecord("ev1", "d1", 20))
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan types.Event, 1)
	stream, err := client.SubscribeEvents(ctx, "p1", &StreamOptions{
		Handlers: map[types.EventType]EventHandler{
			types.EventTypeTemperature: func(e types.Event) { events <- e },
		},
	})
	require.NoError(t, err)
	defer stream.Close()

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never delivered the first event")
	}

	cancel()
	waitDone(t, stream)
}
