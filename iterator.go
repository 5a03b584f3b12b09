package sensorgrid

import (
	"context"
	"fmt"

	"github.com/sensorgrid/sensorgrid-go/internal"
	"github.com/sensorgrid/sensorgrid-go/pkg/types"
)

// DeviceIterator pages through a project's devices without loading the whole
// collection into memory. Pages are fetched lazily as Next consumes the
// buffer.
type DeviceIterator struct {
	ctx       context.Context
	client    *internal.Client
	path      string
	opts      *ListDevicesOptions
	buffer    []types.Device
	bufferIdx int
	pageToken string
	hasMore   bool
	err       error
}

// NewDeviceIterator creates an iterator over the project's devices matching
// the options.
func (c *Client) NewDeviceIterator(ctx context.Context, projectID string, opts *ListDevicesOptions) *DeviceIterator {
	return &DeviceIterator{
		ctx:     ctx,
		client:  c.client,
		path:    "projects/" + projectID + "/devices",
		opts:    opts,
		hasMore: true,
	}
}

// HasNext returns true if there are more devices to iterate through.
func (it *DeviceIterator) HasNext() bool {
	if it.err != nil {
		return false
	}
	return it.bufferIdx < len(it.buffer) || it.hasMore
}

// Next returns the next device in the iteration, fetching the next page when
// the buffer is exhausted.
func (it *DeviceIterator) Next() (*types.Device, error) {
	if it.err != nil {
		return nil, it.err
	}

	if it.bufferIdx >= len(it.buffer) {
		if !it.hasMore {
			return nil, fmt.Errorf("no more devices available")
		}

		devices, next, err := internal.ListPage[types.Device](it.ctx, it.client, it.path, it.opts.query(), "devices", it.pageToken)
		if err != nil {
			it.err = err
			return nil, err
		}

		it.buffer = devices
		it.bufferIdx = 0
		it.pageToken = next

		if next == "" {
			it.hasMore = false
		}
		if len(it.buffer) == 0 {
			if !it.hasMore {
				return nil, fmt.Errorf("no more devices available")
			}
			return it.Next()
		}
	}

	device := &it.buffer[it.bufferIdx]
	it.bufferIdx++
	return device, nil
}

// Error returns any error encountered during iteration.
func (it *DeviceIterator) Error() error {
	return it.err
}

// Reset restarts the iteration from the first page.
func (it *DeviceIterator) Reset() {
	it.buffer = nil
	it.bufferIdx = 0
	it.pageToken = ""
	it.hasMore = true
	it.err = nil
}

// Collect fetches all remaining devices up to maxDevices; zero or negative
// means no limit.
func (it *DeviceIterator) Collect(maxDevices int) ([]types.Device, error) {
	var devices []types.Device
	for it.HasNext() && (maxDevices <= 0 || len(devices) < maxDevices) {
		device, err := it.Next()
		if err != nil {
			return devices, err
		}
		devices = append(devices, *device)
	}
	return devices, nil
}
