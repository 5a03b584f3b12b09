package sensorgrid

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sgerrors "github.com/sensorgrid/sensorgrid-go/pkg/errors"
)

func newIteratorTestClient(t *testing.T, pages map[string]string) (*Client, *atomic.Int64) {
	t.Helper()

	var fetches atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/projects/p1/devices", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		fmt.Fprint(w, pages[r.URL.Query().Get("page_token")])
	})

	client, _ := newTestClient(t, mux)
	return client, &fetches
}

func TestDeviceIteratorWalksAllPages(t *testing.T) {
	client, fetches := newIteratorTestClient(t, map[string]string{
		"":   `{"devices":[{"name":"projects/p1/devices/d1"},{"name":"projects/p1/devices/d2"}],"nextPageToken":"p2"}`,
		"p2": `{"devices":[{"name":"projects/p1/devices/d3"}],"nextPageToken":""}`,
	})

	it := client.NewDeviceIterator(context.Background(), "p1", nil)

	var names []string
	for it.HasNext() {
		device, err := it.Next()
		require.NoError(t, err)
		names = append(names, device.Name)
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{
		"projects/p1/devices/d1",
		"projects/p1/devices/d2",
		"projects/p1/devices/d3",
	}, names)
	assert.Equal(t, int64(2), fetches.Load(), "pages must be fetched lazily, one per exhausted buffer")

	// Past the end.
	assert.False(t, it.HasNext())
	_, err := it.Next()
	require.Error(t, err)
}

func TestDeviceIteratorReset(t *testing.T) {
	client, _ := newIteratorTestClient(t, map[string]string{
		"": `{"devices":[{"name":"projects/p1/devices/d1"}],"nextPageToken":""}`,
	})

	it := client.NewDeviceIterator(context.Background(), "p1", nil)

	first, err := it.Next()
	require.NoError(t, err)
	assert.False(t, it.HasNext())

	it.Reset()
	require.True(t, it.HasNext())
	again, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, first.Name, again.Name)
}

func TestDeviceIteratorCollectLimit(t *testing.T) {
	client, _ := newIteratorTestClient(t, map[string]string{
		"":   `{"devices":[{"name":"projects/p1/devices/d1"},{"name":"projects/p1/devices/d2"}],"nextPageToken":"p2"}`,
		"p2": `{"devices":[{"name":"projects/p1/devices/d3"}],"nextPageToken":""}`,
	})

	it := client.NewDeviceIterator(context.Background(), "p1", nil)
	devices, err := it.Collect(2)
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	// The rest is still there for a later Collect.
	rest, err := it.Collect(0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "projects/p1/devices/d3", rest[0].Name)
}

func TestDeviceIteratorSurfacesPageError(t *testing.T) {
	client, _ := newIteratorTestClient(t, map[string]string{
		"":   `{"devices":[{"name":"projects/p1/devices/d1"}],"nextPageToken":"p2"}`,
		"p2": ``, // empty body, served as 200 with no JSON
	})

	it := client.NewDeviceIterator(context.Background(), "p1", nil)

	_, err := it.Next()
	require.NoError(t, err)

	_, err = it.Next()
	require.Error(t, err)
	assert.Equal(t, sgerrors.KindDecode, sgerrors.KindOf(err))
	assert.Error(t, it.Error())
	assert.False(t, it.HasNext())
}
