package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventTime = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func roundTripEvents() []Event {
	return []Event{
		{
			EventID:    "ev-touch",
			TargetName: "projects/p1/devices/d1",
			EventType:  EventTypeTouch,
			Data:       EventData{Touch: &TouchEvent{UpdateTime: eventTime}},
			Timestamp:  eventTime,
		},
		{
			EventID:    "ev-temp",
			TargetName: "projects/p1/devices/d2",
			EventType:  EventTypeTemperature,
			Data:       EventData{Temperature: &TemperatureEvent{Value: 23.75, UpdateTime: eventTime}},
			Timestamp:  eventTime,
		},
		{
			EventID:    "ev-presence",
			TargetName: "projects/p1/devices/d3",
			EventType:  EventTypeObjectPresent,
			Data:       EventData{ObjectPresent: &ObjectPresentEvent{State: "PRESENT", UpdateTime: eventTime}},
			Timestamp:  eventTime,
		},
		{
			EventID:    "ev-humidity",
			TargetName: "projects/p1/devices/d4",
			EventType:  EventTypeHumidity,
			Data: EventData{Humidity: &HumidityEvent{
				Temperature:      22.1,
				RelativeHumidity: 45.5,
				UpdateTime:       eventTime,
			}},
			Timestamp: eventTime,
		},
		{
			EventID:    "ev-water",
			TargetName: "projects/p1/devices/d5",
			EventType:  EventTypeWaterPresent,
			Data:       EventData{WaterPresent: &WaterPresentEvent{State: "NOT_PRESENT", UpdateTime: eventTime}},
			Timestamp:  eventTime,
		},
		{
			EventID:    "ev-network",
			TargetName: "projects/p1/devices/d6",
			EventType:  EventTypeNetworkStatus,
			Data: EventData{NetworkStatus: &NetworkStatusEvent{
				SignalStrength:   78,
				RSSI:             -62,
				TransmissionMode: "LOW_POWER_STANDARD_MODE",
				CloudConnectors: []NetworkStatusCloudConnector{
					{ID: "cc1", SignalStrength: 78, RSSI: -62},
				},
				UpdateTime: eventTime,
			}},
			Timestamp: eventTime,
		},
		{
			EventID:    "ev-battery",
			TargetName: "projects/p1/devices/d7",
			EventType:  EventTypeBatteryStatus,
			Data:       EventData{BatteryStatus: &BatteryStatusEvent{Percentage: 93, UpdateTime: eventTime}},
			Timestamp:  eventTime,
		},
		{
			EventID:    "ev-connection",
			TargetName: "projects/p1/devices/d8",
			EventType:  EventTypeConnectionStatus,
			Data: EventData{ConnectionStatus: &ConnectionStatusEvent{
				Connection: "CELLULAR",
				Available:  []string{"CELLULAR", "ETHERNET"},
				UpdateTime: eventTime,
			}},
			Timestamp: eventTime,
		},
		{
			EventID:    "ev-labels",
			TargetName: "projects/p1/devices/d9",
			EventType:  EventTypeLabelsChanged,
			Data: EventData{LabelsChanged: &LabelsChangedEvent{
				Added:    map[string]string{"room": "kitchen"},
				Modified: map[string]string{"floor": "2"},
				Removed:  []string{"temporary"},
			}},
			Timestamp: eventTime,
		},
	}
}

func TestEventRoundTrip(t *testing.T) {
	for _, event := range roundTripEvents() {
		t.Run(string(event.EventType), func(t *testing.T) {
			encoded, err := json.Marshal(event)
			require.NoError(t, err)

			var decoded Event
			require.NoError(t, json.Unmarshal(encoded, &decoded))

			if diff := cmp.Diff(event, decoded); diff != "" {
				t.Errorf("event changed across round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStreamRecordRoundTrip(t *testing.T) {
	for _, event := range roundTripEvents() {
		t.Run(string(event.EventType), func(t *testing.T) {
			var record StreamRecord
			record.Result.Event = event

			encoded, err := json.Marshal(record)
			require.NoError(t, err)

			var decoded StreamRecord
			require.NoError(t, json.Unmarshal(encoded, &decoded))

			if diff := cmp.Diff(record, decoded); diff != "" {
				t.Errorf("record changed across round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEventUnmarshalWireFormat(t *testing.T) {
	raw := `{
		"eventId": "ev-1",
		"targetName": "projects/p1/devices/d1",
		"eventType": "temperature",
		"data": {"temperature": {"value": 24.5, "updateTime": "2025-06-15T10:30:00Z"}},
		"timestamp": "2025-06-15T10:30:00Z"
	}`

	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	assert.Equal(t, EventTypeTemperature, event.EventType)
	require.NotNil(t, event.Data.Temperature)
	assert.Equal(t, 24.5, event.Data.Temperature.Value)
	assert.True(t, event.Data.Temperature.UpdateTime.Equal(eventTime))

	id, err := event.DeviceID()
	require.NoError(t, err)
	assert.Equal(t, "d1", id)
}

func TestEventUnknownTypeIsRepresentable(t *testing.T) {
	raw := `{
		"eventId": "ev-x",
		"targetName": "projects/p1/devices/d1",
		"eventType": "co2",
		"data": {"co2": {"ppm": 420}},
		"timestamp": "2025-06-15T10:30:00Z"
	}`

	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event), "unknown event types must not fail decoding")

	assert.Equal(t, EventType("co2"), event.EventType)
	assert.False(t, event.EventType.Known())
	assert.JSONEq(t, `{"ppm": 420}`, string(event.Data.Raw))

	// And it survives re-encoding with the payload intact.
	encoded, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.JSONEq(t, `{"ppm": 420}`, string(decoded.Data.Raw))
}

func TestEventUnmarshalMissingPayload(t *testing.T) {
	raw := `{"targetName": "projects/p1/devices/d1", "eventType": "touch"}`

	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.Equal(t, EventTypeTouch, event.EventType)
	assert.Nil(t, event.Data.Touch)
}

func TestEventTypeKnown(t *testing.T) {
	assert.True(t, EventTypeTouch.Known())
	assert.True(t, EventTypeLabelsChanged.Known())
	assert.False(t, EventType("co2").Known())
	assert.False(t, EventType("").Known())
}
