package types

import (
	"encoding/json"
	"time"
)

// EventType discriminates the payload variants of an Event. Values not listed
// here are still representable: the Event keeps the wire string and the raw
// payload, and Known reports false.
type EventType string

const (
	EventTypeTouch            EventType = "touch"
	EventTypeTemperature      EventType = "temperature"
	EventTypeObjectPresent    EventType = "objectPresent"
	EventTypeHumidity         EventType = "humidity"
	EventTypeWaterPresent     EventType = "waterPresent"
	EventTypeNetworkStatus    EventType = "networkStatus"
	EventTypeBatteryStatus    EventType = "batteryStatus"
	EventTypeConnectionStatus EventType = "connectionStatus"
	EventTypeLabelsChanged    EventType = "labelsChanged"
)

// Known reports whether the event type is one this package models. Unknown
// types are carried through with their raw payload for forward compatibility.
func (t EventType) Known() bool {
	switch t {
	case EventTypeTouch, EventTypeTemperature, EventTypeObjectPresent,
		EventTypeHumidity, EventTypeWaterPresent, EventTypeNetworkStatus,
		EventTypeBatteryStatus, EventTypeConnectionStatus, EventTypeLabelsChanged:
		return true
	}
	return false
}

// Event is one device event. The payload lives in exactly one field of Data,
// selected by EventType; for unrecognized types the raw payload is preserved
// in Data.Raw.
type Event struct {
	// EventID is the server-assigned event identifier.
	EventID string
	// TargetName is the resource name of the device that emitted the event.
	TargetName string
	// EventType selects the populated Data field.
	EventType EventType
	// Data holds the typed payload.
	Data EventData
	// Timestamp is when the event was recorded.
	Timestamp time.Time
}

// DeviceID returns the local identifier of the emitting device.
func (e Event) DeviceID() (string, error) { return IDFromName(e.TargetName) }

// EventData is the payload union of an Event. Exactly one field is non-nil
// for known event types; Raw is set for unknown types.
type EventData struct {
	Touch            *TouchEvent
	Temperature      *TemperatureEvent
	ObjectPresent    *ObjectPresentEvent
	Humidity         *HumidityEvent
	WaterPresent     *WaterPresentEvent
	NetworkStatus    *NetworkStatusEvent
	BatteryStatus    *BatteryStatusEvent
	ConnectionStatus *ConnectionStatusEvent
	LabelsChanged    *LabelsChangedEvent
	// Raw holds the payload of an event type this package does not model.
	Raw json.RawMessage
}

// TouchEvent is emitted when a device is touched.
type TouchEvent struct {
	// UpdateTime is when the touch was registered.
	UpdateTime time.Time `json:"updateTime"`
}

// TemperatureEvent carries a temperature sample in celsius.
type TemperatureEvent struct {
	// Value is the sampled temperature in celsius.
	Value float64 `json:"value"`
	// UpdateTime is when the sample was taken.
	UpdateTime time.Time `json:"updateTime"`
}

// ObjectPresentEvent reports proximity sensor state.
type ObjectPresentEvent struct {
	// State is "PRESENT" or "NOT_PRESENT".
	State string `json:"state"`
	// UpdateTime is when the state changed.
	UpdateTime time.Time `json:"updateTime"`
}

// HumidityEvent carries a combined humidity and temperature sample.
type HumidityEvent struct {
	// Temperature is the sampled temperature in celsius.
	Temperature float64 `json:"temperature"`
	// RelativeHumidity is the sampled relative humidity in percent.
	RelativeHumidity float64 `json:"relativeHumidity"`
	// UpdateTime is when the sample was taken.
	UpdateTime time.Time `json:"updateTime"`
}

// WaterPresentEvent reports water sensor state.
type WaterPresentEvent struct {
	// State is "PRESENT" or "NOT_PRESENT".
	State string `json:"state"`
	// UpdateTime is when the state changed.
	UpdateTime time.Time `json:"updateTime"`
}

// NetworkStatusEvent is a device's periodic network heartbeat.
type NetworkStatusEvent struct {
	// SignalStrength is the connection strength in percent.
	SignalStrength int `json:"signalStrength"`
	// RSSI is the raw signal strength indication.
	RSSI int `json:"rssi"`
	// TransmissionMode is "LOW_POWER_STANDARD_MODE" or "HIGH_POWER_BOOST_MODE".
	TransmissionMode string `json:"transmissionMode,omitempty"`
	// CloudConnectors lists the cloud connectors that heard the heartbeat.
	CloudConnectors []NetworkStatusCloudConnector `json:"cloudConnectors,omitempty"`
	// UpdateTime is when the heartbeat was received.
	UpdateTime time.Time `json:"updateTime"`
}

// NetworkStatusCloudConnector identifies one cloud connector that relayed a
// heartbeat, with the signal it measured.
type NetworkStatusCloudConnector struct {
	// ID is the cloud connector's local identifier.
	ID string `json:"id"`
	// SignalStrength is the relayed connection strength in percent.
	SignalStrength int `json:"signalStrength"`
	// RSSI is the raw signal strength indication measured by the connector.
	RSSI int `json:"rssi"`
}

// BatteryStatusEvent reports remaining battery.
type BatteryStatusEvent struct {
	// Percentage is the estimated remaining battery in percent.
	Percentage int `json:"percentage"`
	// UpdateTime is when the estimate was made.
	UpdateTime time.Time `json:"updateTime"`
}

// ConnectionStatusEvent reports a device's transport availability.
type ConnectionStatusEvent struct {
	// Connection is the current transport: "ETHERNET", "CELLULAR" or "OFFLINE".
	Connection string `json:"connection"`
	// Available lists the transports currently available to the device.
	Available []string `json:"available,omitempty"`
	// UpdateTime is when the status changed.
	UpdateTime time.Time `json:"updateTime"`
}

// LabelsChangedEvent reports label modifications on a device.
type LabelsChangedEvent struct {
	// Added holds labels that were added.
	Added map[string]string `json:"added,omitempty"`
	// Modified holds labels whose values changed.
	Modified map[string]string `json:"modified,omitempty"`
	// Removed lists label keys that were removed.
	Removed []string `json:"removed,omitempty"`
}

// eventEnvelope is the wire shape of an Event: the payload is nested under a
// data key named after the event type.
type eventEnvelope struct {
	EventID    string                     `json:"eventId,omitempty"`
	TargetName string                     `json:"targetName"`
	EventType  string                     `json:"eventType"`
	Data       map[string]json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time                  `json:"timestamp,omitzero"`
}

// UnmarshalJSON implements json.Unmarshaler. Unknown event types do not fail;
// the raw payload is kept in Data.Raw.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	*e = Event{
		EventID:    env.EventID,
		TargetName: env.TargetName,
		EventType:  EventType(env.EventType),
		Timestamp:  env.Timestamp,
	}

	payload, ok := env.Data[env.EventType]
	if !ok {
		return nil
	}

	var dst any
	switch e.EventType {
	case EventTypeTouch:
		e.Data.Touch = &TouchEvent{}
		dst = e.Data.Touch
	case EventTypeTemperature:
		e.Data.Temperature = &TemperatureEvent{}
		dst = e.Data.Temperature
	case EventTypeObjectPresent:
		e.Data.ObjectPresent = &ObjectPresentEvent{}
		dst = e.Data.ObjectPresent
	case EventTypeHumidity:
		e.Data.Humidity = &HumidityEvent{}
		dst = e.Data.Humidity
	case EventTypeWaterPresent:
		e.Data.WaterPresent = &WaterPresentEvent{}
		dst = e.Data.WaterPresent
	case EventTypeNetworkStatus:
		e.Data.NetworkStatus = &NetworkStatusEvent{}
		dst = e.Data.NetworkStatus
	case EventTypeBatteryStatus:
		e.Data.BatteryStatus = &BatteryStatusEvent{}
		dst = e.Data.BatteryStatus
	case EventTypeConnectionStatus:
		e.Data.ConnectionStatus = &ConnectionStatusEvent{}
		dst = e.Data.ConnectionStatus
	case EventTypeLabelsChanged:
		e.Data.LabelsChanged = &LabelsChangedEvent{}
		dst = e.Data.LabelsChanged
	default:
		e.Data.Raw = append(json.RawMessage(nil), payload...)
		return nil
	}

	return json.Unmarshal(payload, dst)
}

// MarshalJSON implements json.Marshaler, producing the same nested-payload
// shape UnmarshalJSON accepts.
func (e Event) MarshalJSON() ([]byte, error) {
	env := eventEnvelope{
		EventID:    e.EventID,
		TargetName: e.TargetName,
		EventType:  string(e.EventType),
		Timestamp:  e.Timestamp,
	}

	// A nil payload pointer must stay out of the interface, or the null
	// would be serialized under the data key.
	var payload any
	switch e.EventType {
	case EventTypeTouch:
		if e.Data.Touch != nil {
			payload = e.Data.Touch
		}
	case EventTypeTemperature:
		if e.Data.Temperature != nil {
			payload = e.Data.Temperature
		}
	case EventTypeObjectPresent:
		if e.Data.ObjectPresent != nil {
			payload = e.Data.ObjectPresent
		}
	case EventTypeHumidity:
		if e.Data.Humidity != nil {
			payload = e.Data.Humidity
		}
	case EventTypeWaterPresent:
		if e.Data.WaterPresent != nil {
			payload = e.Data.WaterPresent
		}
	case EventTypeNetworkStatus:
		if e.Data.NetworkStatus != nil {
			payload = e.Data.NetworkStatus
		}
	case EventTypeBatteryStatus:
		if e.Data.BatteryStatus != nil {
			payload = e.Data.BatteryStatus
		}
	case EventTypeConnectionStatus:
		if e.Data.ConnectionStatus != nil {
			payload = e.Data.ConnectionStatus
		}
	case EventTypeLabelsChanged:
		if e.Data.LabelsChanged != nil {
			payload = e.Data.LabelsChanged
		}
	default:
		if e.Data.Raw != nil {
			env.Data = map[string]json.RawMessage{string(e.EventType): e.Data.Raw}
		}
		return json.Marshal(env)
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = map[string]json.RawMessage{string(e.EventType): raw}
	}

	return json.Marshal(env)
}

// StreamRecord is the envelope of one server-sent-events data record: the
// event sits under result.event.
type StreamRecord struct {
	Result struct {
		Event Event `json:"event"`
	} `json:"result"`
}
