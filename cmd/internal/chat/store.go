// Package chat implements the realtime messaging core: the connection
// registry, the per-session websocket protocol loop, and broadcast fan-out.
// Durable state lives behind the Store boundary so the core runs identically
// against PostgreSQL and the in-memory implementation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind discriminates the two conversation flavors.
type Kind string

const (
	// KindPersonal is a direct chat addressed by chat_id.
	KindPersonal Kind = "personal"
	// KindGroup is a group addressed by group_id; it persists into a backing chat.
	KindGroup Kind = "group"
)

// ConversationKey identifies a conversation for registry and broadcast purposes.
// The kind is part of the key: chat 7 and group 7 are distinct rooms.
type ConversationKey struct {
	ID   int64
	Kind Kind
}

func (k ConversationKey) String() string {
	return fmt.Sprintf("%s/%d", k.Kind, k.ID)
}

// Conversation is the resolved record behind a ConversationKey.
type Conversation struct {
	Key  ConversationKey
	Name string

	// ChatID is the persistence target: the conversation's own id for a
	// personal chat, the backing chat id for a group.
	ChatID int64

	// Participants of a personal chat (zero for groups).
	User1ID int64
	User2ID int64
}

// Message is the durable message record.
type Message struct {
	ID          int64
	ChatID      int64
	SenderID    int64
	Text        string
	Timestamp   time.Time
	IsRead      bool
	Fingerprint string
}

// Store boundary errors.
var (
	// ErrDuplicateMessage is returned when a fingerprint already exists.
	ErrDuplicateMessage = errors.New("chat: duplicate message")
	// ErrMessageNotFound is returned by MarkMessageRead for an unknown id.
	ErrMessageNotFound = errors.New("chat: message not found")
	// ErrConversationNotFound is returned when a chat/group id does not resolve.
	ErrConversationNotFound = errors.New("chat: conversation not found")
	// ErrConversationExists guards the one-personal-chat-per-pair invariant.
	ErrConversationExists = errors.New("chat: conversation already exists")
)

// CreateMessageInput describes a message persist request.
type CreateMessageInput struct {
	ChatID      int64
	SenderID    int64
	Text        string
	Fingerprint string
	Now         time.Time
}

// Store is the persistence gateway the realtime core talks to.
//
// Requirements:
//   - CreateMessage enforces fingerprint uniqueness (ErrDuplicateMessage).
//   - MarkMessageRead is idempotent: re-marking a read message succeeds and
//     returns the current state.
//   - ResolveConversation maps a group key to its backing chat id.
type Store interface {
	CreateMessage(ctx context.Context, in CreateMessageInput) (Message, error)
	MarkMessageRead(ctx context.Context, messageID int64) (Message, error)
	ResolveConversation(ctx context.Context, key ConversationKey) (Conversation, error)
	Close() error
}
