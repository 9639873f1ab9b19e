// Package webview manages issue detail sessions and the message protocol
// spoken with their display surfaces.
package webview

import (
	"encoding/json"
	"fmt"

	"github.com/roeyazroel/linear-ide/internal/issues"
)

// Message type tags carried in the envelope.
const (
	TypeReady         = "ready"
	TypeStartWork     = "startWork"
	TypeOpenInBrowser = "openInBrowser"
	TypeRefresh       = "refresh"

	TypeUpdate  = "update"
	TypeLoading = "loading"
	TypeError   = "error"
)

// envelope is the wire form of every message.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is a message sent by a display surface to its session.
type Inbound interface {
	inbound()
}

// Ready announces that the surface can receive data.
type Ready struct{}

// StartWork asks to create or check out the branch of the issue.
type StartWork struct{}

// OpenInBrowser asks to open URL with the system browser.
type OpenInBrowser struct {
	URL string `json:"url"`
}

// Refresh asks to reload the issue.
type Refresh struct{}

// Unknown is any inbound message with an unrecognized type. Sessions ignore it.
type Unknown struct {
	Type string
}

func (Ready) inbound()         {}
func (StartWork) inbound()     {}
func (OpenInBrowser) inbound() {}
func (Refresh) inbound()       {}
func (Unknown) inbound()       {}

// Outbound is a message sent by a session to its display surface.
type Outbound interface {
	outbound()
}

// Update carries the loaded issue detail.
type Update struct {
	Issue issues.IssueDetailRecord
}

// Loading reports whether a load is in progress.
type Loading struct {
	IsLoading bool `json:"isLoading"`
}

// Error reports a failed load.
type Error struct {
	Message string `json:"message"`
}

func (Update) outbound()  {}
func (Loading) outbound() {}
func (Error) outbound()   {}

// DecodeInbound parses an inbound envelope. Unrecognized types decode to
// Unknown rather than an error.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode inbound message: %w", err)
	}

	switch env.Type {
	case TypeReady:
		return Ready{}, nil
	case TypeStartWork:
		return StartWork{}, nil
	case TypeRefresh:
		return Refresh{}, nil
	case TypeOpenInBrowser:
		var msg OpenInBrowser
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
			}
		}
		return msg, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}

// EncodeInbound serializes an inbound message. Surfaces use it to talk to
// their session.
func EncodeInbound(msg Inbound) ([]byte, error) {
	switch m := msg.(type) {
	case Ready:
		return marshalEnvelope(TypeReady, nil)
	case StartWork:
		return marshalEnvelope(TypeStartWork, nil)
	case Refresh:
		return marshalEnvelope(TypeRefresh, nil)
	case OpenInBrowser:
		return marshalEnvelope(TypeOpenInBrowser, m)
	case Unknown:
		return marshalEnvelope(m.Type, nil)
	default:
		return nil, fmt.Errorf("encode inbound message: unsupported %T", msg)
	}
}

// EncodeOutbound serializes an outbound message.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case Update:
		return marshalEnvelope(TypeUpdate, m.Issue)
	case Loading:
		return marshalEnvelope(TypeLoading, m)
	case Error:
		return marshalEnvelope(TypeError, m)
	default:
		return nil, fmt.Errorf("encode outbound message: unsupported %T", msg)
	}
}

// DecodeOutbound parses an outbound envelope on the surface side.
func DecodeOutbound(data []byte) (Outbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode outbound message: %w", err)
	}

	switch env.Type {
	case TypeUpdate:
		var detail issues.IssueDetailRecord
		if err := json.Unmarshal(env.Payload, &detail); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return Update{Issue: detail}, nil
	case TypeLoading:
		var msg Loading
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return msg, nil
	case TypeError:
		var msg Error
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("decode outbound message: unknown type %q", env.Type)
	}
}

func marshalEnvelope(typ string, payload interface{}) ([]byte, error) {
	env := envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
