package chat

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCreateAndDuplicate(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	in := CreateMessageInput{
		ChatID:      1,
		SenderID:    2,
		Text:        "hi",
		Fingerprint: Fingerprint(1, 2, "hi"),
	}

	first, err := s.CreateMessage(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == 0 || first.IsRead {
		t.Fatalf("unexpected message: %+v", first)
	}

	if _, err := s.CreateMessage(ctx, in); !errors.Is(err, ErrDuplicateMessage) {
		t.Fatalf("second create err=%v want ErrDuplicateMessage", err)
	}

	// Different text is a different fingerprint and must pass.
	in2 := in
	in2.Text = "hi again"
	in2.Fingerprint = Fingerprint(1, 2, "hi again")
	second, err := s.CreateMessage(ctx, in2)
	if err != nil {
		t.Fatalf("distinct create: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("ids not unique: %d", second.ID)
	}
}

func TestMemoryStoreMarkReadIdempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	m, err := s.CreateMessage(ctx, CreateMessageInput{
		ChatID: 1, SenderID: 2, Text: "hi", Fingerprint: Fingerprint(1, 2, "hi"),
	})
	if err != nil {
		t.Fatal(err)
	}

	read, err := s.MarkMessageRead(ctx, m.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !read.IsRead {
		t.Fatalf("is_read not set")
	}

	again, err := s.MarkMessageRead(ctx, m.ID)
	if err != nil {
		t.Fatalf("second mark read must succeed: %v", err)
	}
	if !again.IsRead {
		t.Fatalf("is_read lost on re-mark")
	}

	if _, err := s.MarkMessageRead(ctx, 9999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("unknown id err=%v want ErrMessageNotFound", err)
	}
}

func TestMemoryStoreResolveConversation(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()

	chatID, err := s.AddPersonalChat("alice & bob", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	groupID, backingChatID := s.AddGroup("team", 1)

	conv, err := s.ResolveConversation(ctx, ConversationKey{ID: chatID, Kind: KindPersonal})
	if err != nil {
		t.Fatalf("resolve chat: %v", err)
	}
	if conv.ChatID != chatID || conv.User1ID != 1 || conv.User2ID != 2 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}

	grp, err := s.ResolveConversation(ctx, ConversationKey{ID: groupID, Kind: KindGroup})
	if err != nil {
		t.Fatalf("resolve group: %v", err)
	}
	if grp.ChatID != backingChatID {
		t.Fatalf("group persists to chat %d, want backing chat %d", grp.ChatID, backingChatID)
	}

	if _, err := s.ResolveConversation(ctx, ConversationKey{ID: 999, Kind: KindPersonal}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("unknown chat err=%v want ErrConversationNotFound", err)
	}
	if _, err := s.ResolveConversation(ctx, ConversationKey{ID: 999, Kind: KindGroup}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("unknown group err=%v want ErrConversationNotFound", err)
	}
}

func TestMemoryStorePersonalChatUniquePerPair(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()

	if _, err := s.AddPersonalChat("a-b", 1, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddPersonalChat("b-a", 2, 1); !errors.Is(err, ErrConversationExists) {
		t.Fatalf("reversed pair err=%v want ErrConversationExists", err)
	}
	if _, err := s.AddPersonalChat("a-c", 1, 3); err != nil {
		t.Fatalf("distinct pair rejected: %v", err)
	}
}
