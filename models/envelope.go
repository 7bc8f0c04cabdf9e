package models

import "encoding/json"

// MessageType discriminates coordination websocket envelopes.
type MessageType string

// Request message types (client to server).
const (
	MsgRoomCreate MessageType = "room_create"
	MsgRoomJoin   MessageType = "room_join"
	MsgRoomList   MessageType = "room_list"
	MsgPing       MessageType = "ping"
)

// Response message types (server to client).
const (
	MsgRoomCreated MessageType = "room_created"
	MsgRoomListing MessageType = "room_listing"
	MsgRoomInfo    MessageType = "room_info"
	MsgServerError MessageType = "error"
)

// Envelope is the coordination wire frame. Payload is encoded lazily so
// readers can dispatch on Type before committing to a payload shape.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload and wraps it in an Envelope of the given type.
func NewEnvelope(t MessageType, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// ServerError is the payload of an error envelope.
type ServerError struct {
	Message string `json:"message"`
}
