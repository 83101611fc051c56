// Package event decodes Slack Socket Mode frames into typed events.
//
// Decoding is layered the way the wire format is layered: the outer frame
// carries a "type" tag, an events_api frame carries a payload with its own
// tag, and a message event inside that payload is discriminated by an
// optional "subtype" field that shares the flat message structure. Each
// layer probes its discriminator first and dispatches to a per-variant
// decode. Unknown tags at the inner layers map to a catch-all variant so
// that new Slack event types never break the pipeline; an unknown tag on
// the outer frame is a decode error.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType reports an outer frame whose "type" tag is not one of the
// Socket Mode frame types this relay understands.
var ErrUnknownType = errors.New("unknown frame type")

// DecodeError reports a frame that could not be decoded: either the outer
// tag is unknown, or the structure under a recognized tag is invalid.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode frame: %v", e.Err)
	}
	return fmt.Sprintf("decode %q frame: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Kind discriminates the outer Socket Mode frame types.
type Kind string

const (
	KindHello      Kind = "hello"
	KindDisconnect Kind = "disconnect"
	KindEventsAPI  Kind = "events_api"
)

// Hello is sent by Slack once per connection.
type Hello struct {
	ConnectionInfo ConnectionInfo `json:"connection_info"`
}

type ConnectionInfo struct {
	AppID string `json:"app_id"`
}

// Envelope is an events_api frame. Payload is kept raw; its schema depends
// on a nested tag, so it is decoded separately with DecodePayload.
type Envelope struct {
	EnvelopeID string          `json:"envelope_id"`
	Payload    json.RawMessage `json:"payload"`
}

// Inbound is a decoded outer frame. The variant field matching Kind is
// set; the others are nil.
type Inbound struct {
	Kind     Kind
	Hello    *Hello
	Envelope *Envelope
}

// DecodeInbound decodes one text frame into an Inbound event.
func DecodeInbound(data []byte) (*Inbound, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}
	switch Kind(probe.Type) {
	case KindHello:
		var h Hello
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, &DecodeError{Type: probe.Type, Err: err}
		}
		return &Inbound{Kind: KindHello, Hello: &h}, nil
	case KindDisconnect:
		return &Inbound{Kind: KindDisconnect}, nil
	case KindEventsAPI:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Type: probe.Type, Err: err}
		}
		if env.EnvelopeID == "" {
			return nil, &DecodeError{Type: probe.Type, Err: errors.New("missing envelope_id")}
		}
		return &Inbound{Kind: KindEventsAPI, Envelope: &env}, nil
	default:
		return nil, &DecodeError{Type: probe.Type, Err: ErrUnknownType}
	}
}

// PayloadKind discriminates events_api payload types.
type PayloadKind string

const (
	PayloadEventCallback PayloadKind = "event_callback"
	PayloadOther         PayloadKind = "other"
)

// Payload is a decoded events_api payload. Callback is set only for
// PayloadEventCallback.
type Payload struct {
	Kind     PayloadKind
	Callback *EventCallback
}

// EventCallback wraps one callback event together with its delivery id.
type EventCallback struct {
	EventID string
	Event   *Callback
}

// DecodePayload decodes the raw payload of an events_api envelope. An
// unrecognized payload tag yields PayloadOther, never an error.
func DecodePayload(raw json.RawMessage) (*Payload, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if PayloadKind(probe.Type) != PayloadEventCallback {
		return &Payload{Kind: PayloadOther}, nil
	}
	var body struct {
		EventID string          `json:"event_id"`
		Event   json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &DecodeError{Type: probe.Type, Err: err}
	}
	cb, err := decodeCallback(body.Event)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Kind:     PayloadEventCallback,
		Callback: &EventCallback{EventID: body.EventID, Event: cb},
	}, nil
}

// CallbackKind discriminates callback event types.
type CallbackKind string

const (
	CallbackMessage CallbackKind = "message"
	CallbackOther   CallbackKind = "other"
)

// Callback is the event inside an event_callback payload. Message is set
// only for CallbackMessage.
type Callback struct {
	Kind    CallbackKind
	Message *Message
}

func decodeCallback(raw json.RawMessage) (*Callback, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if CallbackKind(probe.Type) != CallbackMessage {
		return &Callback{Kind: CallbackOther}, nil
	}
	msg, err := decodeMessage(raw)
	if err != nil {
		return nil, err
	}
	return &Callback{Kind: CallbackMessage, Message: msg}, nil
}

// MessageKind discriminates message events by their optional subtype.
type MessageKind string

const (
	MessagePlain     MessageKind = "plain"
	MessageFileShare MessageKind = "file_share"
	MessageOther     MessageKind = "other"
)

// Message is a message callback event. Channel, ThreadTS and TS are
// populated for MessagePlain and MessageFileShare only; any other subtype
// yields MessageOther with zero fields.
type Message struct {
	Kind     MessageKind `json:"-"`
	Channel  string      `json:"channel"`
	ThreadTS *string     `json:"thread_ts"`
	TS       string      `json:"ts"`
}

// decodeMessage reads the optional subtype discriminator first, then
// decodes the remaining flat structure only when the subtype selects a
// variant we care about.
func decodeMessage(raw json.RawMessage) (*Message, error) {
	var probe struct {
		Subtype *string `json:"subtype"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &DecodeError{Type: string(CallbackMessage), Err: err}
	}
	var kind MessageKind
	switch {
	case probe.Subtype == nil:
		kind = MessagePlain
	case *probe.Subtype == string(MessageFileShare):
		kind = MessageFileShare
	default:
		return &Message{Kind: MessageOther}, nil
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{Type: string(CallbackMessage), Err: err}
	}
	msg.Kind = kind
	return &msg, nil
}
