package webhook

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates inbound webhook payloads.
type EventType string

const (
	EventTypeSessionStart  EventType = "session.start"
	EventTypeMessage       EventType = "message"
	EventTypeData          EventType = "data"
	EventTypeSessionUpdate EventType = "session.update"
	EventTypeSessionEnd    EventType = "session.end"
)

// Event is an inbound webhook payload of one of the five known types.
// Turn-scoped events (session.start, message, data) report a non-empty
// TurnID; session-scoped events report "".
type Event interface {
	EventType() EventType
	SessionID() string
	ConversationID() string
	TurnID() string
}

// ParseError reports a payload that failed validation, naming the field
// and variant so the caller can log a useful 400 without echoing secrets.
type ParseError struct {
	Variant EventType
	Field   string
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Variant == "" {
		return fmt.Sprintf("webhook: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("webhook: %s: %s: %s", e.Variant, e.Field, e.Reason)
}

// Base carries the fields shared by every webhook event.
type Base struct {
	Type            EventType       `json:"type"`
	Session         string          `json:"session_id"`
	Conversation    string          `json:"conversation_id"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	FromPhoneNumber *string         `json:"from_phone_number,omitempty"`
	ToPhoneNumber   *string         `json:"to_phone_number,omitempty"`
}

func (b Base) EventType() EventType   { return b.Type }
func (b Base) SessionID() string      { return b.Session }
func (b Base) ConversationID() string { return b.Conversation }
func (b Base) TurnID() string         { return "" }

// RawMetadata returns the metadata object bytes, nil when absent.
func (b Base) RawMetadata() json.RawMessage { return b.Metadata }

// TurnBase extends Base for events scoped to a single conversation turn.
type TurnBase struct {
	Base
	Turn string `json:"turn_id"`
}

func (b TurnBase) TurnID() string { return b.Turn }

// SessionStartEvent signals a new voice session; the agent's reply opens
// the conversation.
type SessionStartEvent struct {
	TurnBase
	Text *string `json:"text,omitempty"`
}

// MessageEvent carries a transcribed user utterance for one turn.
type MessageEvent struct {
	TurnBase
	Text            *string         `json:"text,omitempty"`
	Transcript      *string         `json:"transcript,omitempty"`
	RecordingURL    *string         `json:"recording_url,omitempty"`
	RecordingStatus *string         `json:"recording_status,omitempty"`
	Usage           json.RawMessage `json:"usage,omitempty"`
}

// DataEvent carries a client-pushed structured payload. Data keeps the
// exact wire bytes; downstream tools consume it verbatim.
type DataEvent struct {
	TurnBase
	Data json.RawMessage `json:"data"`
}

// SessionUpdateEvent reports recording status changes for a session.
type SessionUpdateEvent struct {
	Base
	RecordingStatus   *string  `json:"recording_status,omitempty"`
	RecordingURL      *string  `json:"recording_url,omitempty"`
	RecordingDuration *float64 `json:"recording_duration,omitempty"`
	ErrorMessage      *string  `json:"error_message,omitempty"`
}

// TranscriptItem is one entry in a session's final transcript.
// Timestamp is unix milliseconds or an ISO string on the wire, so it is
// kept raw.
type TranscriptItem struct {
	Role      string          `json:"role"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// SessionEndEvent is the terminal event for a session. Transcript order
// is the conversational order; a nil slice means the field was absent,
// an empty non-nil slice means it was present and empty.
type SessionEndEvent struct {
	Base
	AgentID                      *string          `json:"agent_id,omitempty"`
	StartedAt                    *string          `json:"started_at,omitempty"`
	EndedAt                      *string          `json:"ended_at,omitempty"`
	Duration                     *int64           `json:"duration,omitempty"`
	TranscriptionDurationSeconds *float64         `json:"transcription_duration_seconds,omitempty"`
	TTSDurationSeconds           *float64         `json:"tts_duration_seconds,omitempty"`
	Latency                      *float64         `json:"latency,omitempty"`
	IPAddress                    *string          `json:"ip_address,omitempty"`
	CountryCode                  *string          `json:"country_code,omitempty"`
	RecordingStatus              *string          `json:"recording_status,omitempty"`
	Transcript                   []TranscriptItem `json:"transcript,omitempty"`
}

// Parse validates raw webhook bytes into the typed event matching the
// "type" discriminant. Unknown types are errors, never a fallback shape.
func Parse(raw []byte) (Event, error) {
	var head struct {
		Type *EventType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &ParseError{Field: "body", Reason: "invalid JSON"}
	}
	if head.Type == nil {
		return nil, &ParseError{Field: "type", Reason: "missing discriminant"}
	}

	switch *head.Type {
	case EventTypeSessionStart:
		var evt SessionStartEvent
		if err := decodeInto(raw, &evt); err != nil {
			return nil, err
		}
		if err := evt.TurnBase.validate(EventTypeSessionStart); err != nil {
			return nil, err
		}
		return &evt, nil
	case EventTypeMessage:
		var evt MessageEvent
		if err := decodeInto(raw, &evt); err != nil {
			return nil, err
		}
		if err := evt.TurnBase.validate(EventTypeMessage); err != nil {
			return nil, err
		}
		return &evt, nil
	case EventTypeData:
		var evt DataEvent
		if err := decodeInto(raw, &evt); err != nil {
			return nil, err
		}
		if err := evt.TurnBase.validate(EventTypeData); err != nil {
			return nil, err
		}
		if len(evt.Data) == 0 {
			evt.Data = json.RawMessage("{}")
		}
		return &evt, nil
	case EventTypeSessionUpdate:
		var evt SessionUpdateEvent
		if err := decodeInto(raw, &evt); err != nil {
			return nil, err
		}
		if err := evt.Base.validate(EventTypeSessionUpdate); err != nil {
			return nil, err
		}
		return &evt, nil
	case EventTypeSessionEnd:
		var evt SessionEndEvent
		if err := decodeInto(raw, &evt); err != nil {
			return nil, err
		}
		if err := evt.Base.validate(EventTypeSessionEnd); err != nil {
			return nil, err
		}
		return &evt, nil
	default:
		return nil, &ParseError{Field: "type", Reason: fmt.Sprintf("unknown event type %q", string(*head.Type))}
	}
}

func decodeInto(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &ParseError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (b Base) validate(variant EventType) error {
	if b.Session == "" {
		return &ParseError{Variant: variant, Field: "session_id", Reason: "required"}
	}
	if b.Conversation == "" {
		return &ParseError{Variant: variant, Field: "conversation_id", Reason: "required"}
	}
	return nil
}

func (b TurnBase) validate(variant EventType) error {
	if err := b.Base.validate(variant); err != nil {
		return err
	}
	if b.Turn == "" {
		return &ParseError{Variant: variant, Field: "turn_id", Reason: "required"}
	}
	return nil
}
