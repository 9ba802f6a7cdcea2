package naming

import (
	"encoding/json"
	"time"

	"github.com/golang/snappy"
)

// MessageType represents the type of a naming transport message
type MessageType uint8

const (
	// Gossip messages (BUS)
	MsgClaim MessageType = iota
	MsgRelease

	// Dispatch messages (REQ/REP)
	MsgCast
	MsgCall
	MsgNotify
	MsgGetHandle
	MsgReply
	MsgAck

	// Error messages
	MsgError
)

// Wire error codes carried in Message.ErrorCode
const (
	CodeNoSuchRegistration = "no_such_registration"
	CodeTargetStopped      = "target_stopped"
	CodeBadRequest         = "bad_request"
	CodeInternal           = "internal"
)

// compressionThreshold is the payload size above which snappy
// compression is applied on the wire.
const compressionThreshold = 512

// Message is the wire envelope for both gossip and dispatch traffic.
type Message struct {
	Type         MessageType `json:"type"`
	Node         string      `json:"node,omitempty"`
	Name         string      `json:"name,omitempty"`
	RegID        string      `json:"reg_id,omitempty"`
	ClaimedAt    int64       `json:"claimed_at,omitempty"`
	DispatchAddr string      `json:"dispatch_addr,omitempty"`
	TargetID     string      `json:"target_id,omitempty"`
	Payload      []byte      `json:"payload,omitempty"`
	Compressed   bool        `json:"compressed,omitempty"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorDetail  string      `json:"error_detail,omitempty"`
	Timestamp    int64       `json:"timestamp"`
}

// NewMessage creates a message of the given type carrying v as its
// payload. Payloads above the compression threshold are snappy-encoded.
func NewMessage(msgType MessageType, v any) (*Message, error) {
	m := &Message{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
	}
	if v == nil {
		return m, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) > compressionThreshold {
		data = snappy.Encode(nil, data)
		m.Compressed = true
	}
	m.Payload = data
	return m, nil
}

// Encode serializes the message for the wire.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage deserializes a wire message.
func DecodeMessage(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, ErrMessageTooShort
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Decode decodes the message payload into the provided value,
// decompressing first when needed.
func (m *Message) Decode(v any) error {
	data := m.Payload
	if m.Compressed {
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return err
		}
		data = decoded
	}
	return json.Unmarshal(data, v)
}

// PayloadValue decodes the payload into a generic value. Used by the
// dispatcher, which relays payloads without interpreting them.
func (m *Message) PayloadValue() (any, error) {
	if len(m.Payload) == 0 {
		return nil, nil
	}
	var v any
	if err := m.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
