package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Wire action values.
const (
	ActionSendMessage = "send_message"
	ActionMarkAsRead  = "mark_as_read"
	ActionNewMessage  = "new_message"
	ActionMessageRead = "message_read"
)

// Command is the closed set of inbound actions a session can carry out.
// DecodeCommand returns exactly one of SendMessage or MarkAsRead; every other
// input is a decode error answered with a local error frame.
type Command interface {
	isCommand()
}

// SendMessage requests persisting and broadcasting a new message.
type SendMessage struct {
	SenderID int64
	Text     string
}

// MarkAsRead requests flipping a message's read flag and broadcasting the
// after-state.
type MarkAsRead struct {
	MessageID int64
}

func (SendMessage) isCommand() {}
func (MarkAsRead) isCommand()  {}

// inboundFrame is the raw JSON shape of a client frame. Unknown fields are
// ignored; absent numerics decode to zero and fail validation below.
type inboundFrame struct {
	Action    string `json:"action"`
	SenderID  int64  `json:"sender_id"`
	Text      string `json:"text"`
	MessageID int64  `json:"message_id"`
}

// DecodeCommand parses and validates one inbound frame. Errors are
// client-presentable: the session forwards err.Error() in an error frame.
func DecodeCommand(data []byte) (Command, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid JSON")
	}

	switch f.Action {
	case ActionSendMessage:
		if f.SenderID <= 0 || strings.TrimSpace(f.Text) == "" {
			return nil, fmt.Errorf("send_message requires sender_id and text")
		}
		if utf8.RuneCountInString(f.Text) > maxMessageChars {
			return nil, fmt.Errorf("message too long: max=%d chars", maxMessageChars)
		}
		return SendMessage{SenderID: f.SenderID, Text: f.Text}, nil

	case ActionMarkAsRead:
		if f.MessageID <= 0 {
			return nil, fmt.Errorf("mark_as_read requires message_id")
		}
		return MarkAsRead{MessageID: f.MessageID}, nil

	case "":
		return nil, fmt.Errorf("missing action")

	default:
		return nil, fmt.Errorf("unknown action: %q", f.Action)
	}
}

// MessageFrame is the outbound shape for new_message and message_read events.
type MessageFrame struct {
	Action    string `json:"action"`
	ID        int64  `json:"id"`
	ChatID    int64  `json:"chat_id"`
	SenderID  int64  `json:"sender_id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	IsRead    bool   `json:"is_read"`
}

// NewMessageFrame builds an outbound event frame from a persisted message.
// Timestamps go out as RFC 3339 UTC.
func NewMessageFrame(action string, m Message) MessageFrame {
	return MessageFrame{
		Action:    action,
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		IsRead:    m.IsRead,
	}
}

// ErrorFrame is the outbound shape for per-frame recoverable errors.
type ErrorFrame struct {
	Error string `json:"error"`
}
