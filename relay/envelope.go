package relay

import (
	"encoding/json"
	"fmt"
)

// Envelope is one classified inbound relay frame. Frames are parsed
// exactly once at the connection boundary; downstream logic switches
// over the closed set of types below instead of re-inspecting JSON.
type Envelope interface {
	Label() string
}

// EventEnvelope is ["EVENT", <subscription_id>, <event>]. The event
// object is kept raw: buffering and dedup work on bytes, and parsing
// is deferred to collection so one malformed event cannot poison a
// read loop.
type EventEnvelope struct {
	SubscriptionID string
	EventJSON      json.RawMessage
	Raw            []byte
}

func (EventEnvelope) Label() string { return "EVENT" }

// EOSEEnvelope is ["EOSE", <subscription_id>]: the relay has no more
// stored events for the subscription.
type EOSEEnvelope struct {
	SubscriptionID string
}

func (EOSEEnvelope) Label() string { return "EOSE" }

// OKEnvelope is ["OK", <event_id>, <accepted>, <message>]. The core
// matcher does not consume it; it is exposed for extension handlers.
type OKEnvelope struct {
	EventID  string
	Accepted bool
	Message  string
}

func (OKEnvelope) Label() string { return "OK" }

// NoticeEnvelope is ["NOTICE", <message>], a human-readable relay
// message.
type NoticeEnvelope struct {
	Message string
}

func (NoticeEnvelope) Label() string { return "NOTICE" }

// UnknownEnvelope is any well-formed frame with an unrecognized label.
// The matcher ignores it.
type UnknownEnvelope struct {
	Tag string
}

func (u UnknownEnvelope) Label() string { return u.Tag }

// ParseEnvelope classifies one raw frame. It returns an error for
// frames that are not a JSON array with a string label or that are
// too short for their label; callers skip such frames.
func ParseEnvelope(data []byte) (Envelope, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("frame is not a JSON array: %w", err)
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("frame is an empty array")
	}
	var label string
	if err := json.Unmarshal(arr[0], &label); err != nil {
		return nil, fmt.Errorf("frame label is not a string: %w", err)
	}

	switch label {
	case "EVENT":
		if len(arr) < 3 {
			return nil, fmt.Errorf("EVENT frame has %d elements, want 3", len(arr))
		}
		var subID string
		if err := json.Unmarshal(arr[1], &subID); err != nil {
			return nil, fmt.Errorf("EVENT subscription id: %w", err)
		}
		return EventEnvelope{SubscriptionID: subID, EventJSON: arr[2], Raw: data}, nil

	case "EOSE":
		if len(arr) < 2 {
			return nil, fmt.Errorf("EOSE frame has %d elements, want 2", len(arr))
		}
		var subID string
		if err := json.Unmarshal(arr[1], &subID); err != nil {
			return nil, fmt.Errorf("EOSE subscription id: %w", err)
		}
		return EOSEEnvelope{SubscriptionID: subID}, nil

	case "OK":
		if len(arr) < 4 {
			return nil, fmt.Errorf("OK frame has %d elements, want 4", len(arr))
		}
		var env OKEnvelope
		if err := json.Unmarshal(arr[1], &env.EventID); err != nil {
			return nil, fmt.Errorf("OK event id: %w", err)
		}
		if err := json.Unmarshal(arr[2], &env.Accepted); err != nil {
			return nil, fmt.Errorf("OK accepted flag: %w", err)
		}
		if err := json.Unmarshal(arr[3], &env.Message); err != nil {
			return nil, fmt.Errorf("OK message: %w", err)
		}
		return env, nil

	case "NOTICE":
		if len(arr) < 2 {
			return nil, fmt.Errorf("NOTICE frame has %d elements, want 2", len(arr))
		}
		var msg string
		if err := json.Unmarshal(arr[1], &msg); err != nil {
			return nil, fmt.Errorf("NOTICE message: %w", err)
		}
		return NoticeEnvelope{Message: msg}, nil

	default:
		return UnknownEnvelope{Tag: label}, nil
	}
}
