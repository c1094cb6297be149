package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"willow-auction-engine/internal/domain/shared"
	"willow-auction-engine/internal/ports/outbound"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"

	// Server to Client message types
	MessageTypeAuctionOpened MessageType = "auction_opened"
	MessageTypeSubscribed    MessageType = "subscribed"
	MessageTypeError         MessageType = "error"
	MessageTypePong          MessageType = "pong"
)

// ClientMessage represents a message sent from an agent's client
type ClientMessage struct {
	Type      MessageType `json:"type"`
	Provinces []string    `json:"provinces,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ServerMessage represents a message sent from server to an agent's client
type ServerMessage struct {
	Type      MessageType                  `json:"type"`
	Event     *outbound.AuctionOpenedEvent `json:"event,omitempty"`
	Provinces []string                     `json:"provinces,omitempty"`
	Error     *string                      `json:"error,omitempty"`
	Timestamp int64                        `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

// NewAuctionOpenedMessage wraps an opened-auction alert for delivery
func NewAuctionOpenedMessage(event outbound.AuctionOpenedEvent) *ServerMessage {
	msg := NewServerMessage(MessageTypeAuctionOpened)
	msg.Event = &event
	return msg
}

// ParseClientMessage parses a JSON message from a client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe:
		if len(m.Provinces) == 0 {
			return shared.ErrProvinceRequired
		}
	case MessageTypeUnsubscribe:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}
