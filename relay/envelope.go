package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deemkeen/nostrodon/domain"
)

type EnvelopeType string

const (
	EnvelopeEvent  EnvelopeType = "EVENT"
	EnvelopeEOSE   EnvelopeType = "EOSE"
	EnvelopeNotice EnvelopeType = "NOTICE"
	EnvelopeOK     EnvelopeType = "OK"
	EnvelopeClosed EnvelopeType = "CLOSED"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is one message received from a relay.
type Envelope struct {
	Type  EnvelopeType
	Relay string

	// SubscriptionID is set for EVENT, EOSE and CLOSED.
	SubscriptionID string
	Event          *domain.Event

	// EventID and Accepted are set for OK.
	EventID  string
	Accepted bool

	// Message is the human readable part of NOTICE, OK and CLOSED.
	Message string
}

// ParseEnvelope decodes a relay-to-client message.
func ParseEnvelope(data []byte) (Envelope, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(parts) < 2 {
		return Envelope{}, fmt.Errorf("%w: %d elements", ErrMalformedEnvelope, len(parts))
	}

	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil {
		return Envelope{}, fmt.Errorf("%w: label: %v", ErrMalformedEnvelope, err)
	}

	env := Envelope{Type: EnvelopeType(label)}
	switch env.Type {
	case EnvelopeEvent:
		if len(parts) < 3 {
			return Envelope{}, fmt.Errorf("%w: EVENT without event", ErrMalformedEnvelope)
		}
		if err := json.Unmarshal(parts[1], &env.SubscriptionID); err != nil {
			return Envelope{}, fmt.Errorf("%w: subscription id: %v", ErrMalformedEnvelope, err)
		}
		var ev domain.Event
		if err := json.Unmarshal(parts[2], &ev); err != nil {
			return Envelope{}, fmt.Errorf("%w: event: %v", ErrMalformedEnvelope, err)
		}
		env.Event = &ev
	case EnvelopeEOSE:
		if err := json.Unmarshal(parts[1], &env.SubscriptionID); err != nil {
			return Envelope{}, fmt.Errorf("%w: subscription id: %v", ErrMalformedEnvelope, err)
		}
	case EnvelopeClosed:
		if err := json.Unmarshal(parts[1], &env.SubscriptionID); err != nil {
			return Envelope{}, fmt.Errorf("%w: subscription id: %v", ErrMalformedEnvelope, err)
		}
		if len(parts) > 2 {
			_ = json.Unmarshal(parts[2], &env.Message)
		}
	case EnvelopeNotice:
		if err := json.Unmarshal(parts[1], &env.Message); err != nil {
			return Envelope{}, fmt.Errorf("%w: notice: %v", ErrMalformedEnvelope, err)
		}
	case EnvelopeOK:
		if len(parts) < 3 {
			return Envelope{}, fmt.Errorf("%w: OK without status", ErrMalformedEnvelope)
		}
		if err := json.Unmarshal(parts[1], &env.EventID); err != nil {
			return Envelope{}, fmt.Errorf("%w: event id: %v", ErrMalformedEnvelope, err)
		}
		if err := json.Unmarshal(parts[2], &env.Accepted); err != nil {
			return Envelope{}, fmt.Errorf("%w: status: %v", ErrMalformedEnvelope, err)
		}
		if len(parts) > 3 {
			_ = json.Unmarshal(parts[3], &env.Message)
		}
	default:
		return Envelope{}, fmt.Errorf("%w: unknown label %q", ErrMalformedEnvelope, label)
	}
	return env, nil
}

func encodeReq(subID string, filters []Filter) ([]byte, error) {
	msg := make([]any, 0, len(filters)+2)
	msg = append(msg, "REQ", subID)
	for _, f := range filters {
		msg = append(msg, f)
	}
	return json.Marshal(msg)
}

func encodeClose(subID string) ([]byte, error) {
	return json.Marshal([]any{"CLOSE", subID})
}

func encodeEvent(ev domain.Event) ([]byte, error) {
	if ev.Tags == nil {
		ev.Tags = []domain.Tag{}
	}
	return json.Marshal([]any{"EVENT", ev})
}
