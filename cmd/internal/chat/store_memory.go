package chat

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used in tests and when no database is
// configured. Conversations are seeded through AddPersonalChat/AddGroup.
type MemoryStore struct {
	mu sync.Mutex

	nextChatID    int64
	nextGroupID   int64
	nextMessageID int64

	chats         map[int64]memChat
	groups        map[int64]memGroup
	messages      map[int64]Message
	byFingerprint map[string]int64
}

type memChat struct {
	ID      int64
	Name    string
	Kind    Kind
	User1ID int64
	User2ID int64
}

type memGroup struct {
	ID        int64
	Name      string
	CreatorID int64
	ChatID    int64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:         make(map[int64]memChat),
		groups:        make(map[int64]memGroup),
		messages:      make(map[int64]Message),
		byFingerprint: make(map[string]int64),
	}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// AddPersonalChat seeds a personal chat between two users and returns its id.
// At most one personal chat may exist per unordered participant pair.
func (s *MemoryStore) AddPersonalChat(name string, user1ID, user2ID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.chats {
		if c.Kind != KindPersonal {
			continue
		}
		if (c.User1ID == user1ID && c.User2ID == user2ID) ||
			(c.User1ID == user2ID && c.User2ID == user1ID) {
			return 0, ErrConversationExists
		}
	}

	s.nextChatID++
	id := s.nextChatID
	s.chats[id] = memChat{ID: id, Name: name, Kind: KindPersonal, User1ID: user1ID, User2ID: user2ID}
	return id, nil
}

// AddGroup seeds a group with its backing chat and returns (groupID, chatID).
func (s *MemoryStore) AddGroup(name string, creatorID int64) (int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChatID++
	chatID := s.nextChatID
	s.chats[chatID] = memChat{ID: chatID, Name: name, Kind: KindGroup}

	s.nextGroupID++
	groupID := s.nextGroupID
	s.groups[groupID] = memGroup{ID: groupID, Name: name, CreatorID: creatorID, ChatID: chatID}
	return groupID, chatID
}

// CreateMessage persists a message, rejecting fingerprint duplicates.
func (s *MemoryStore) CreateMessage(ctx context.Context, in CreateMessageInput) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byFingerprint[in.Fingerprint]; ok {
		return Message{}, ErrDuplicateMessage
	}

	s.nextMessageID++
	m := Message{
		ID:          s.nextMessageID,
		ChatID:      in.ChatID,
		SenderID:    in.SenderID,
		Text:        in.Text,
		Timestamp:   now,
		IsRead:      false,
		Fingerprint: in.Fingerprint,
	}
	s.messages[m.ID] = m
	s.byFingerprint[in.Fingerprint] = m.ID
	return m, nil
}

// MarkMessageRead flips the read flag and returns the after-state.
// Re-marking a read message is a no-op success.
func (s *MemoryStore) MarkMessageRead(ctx context.Context, messageID int64) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok {
		return Message{}, ErrMessageNotFound
	}
	m.IsRead = true
	s.messages[messageID] = m
	return m, nil
}

// ResolveConversation maps a key to its record. Group keys resolve through
// the group table to the backing chat id.
func (s *MemoryStore) ResolveConversation(ctx context.Context, key ConversationKey) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch key.Kind {
	case KindGroup:
		g, ok := s.groups[key.ID]
		if !ok {
			return Conversation{}, ErrConversationNotFound
		}
		return Conversation{Key: key, Name: g.Name, ChatID: g.ChatID}, nil

	default:
		c, ok := s.chats[key.ID]
		if !ok {
			return Conversation{}, ErrConversationNotFound
		}
		return Conversation{
			Key:     key,
			Name:    c.Name,
			ChatID:  c.ID,
			User1ID: c.User1ID,
			User2ID: c.User2ID,
		}, nil
	}
}
