package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDispatcherDeliversToEveryMember(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testLogger())
	key := ConversationKey{ID: 1, Kind: KindPersonal}
	a := NewClient("a", 1, key, 0)
	b := NewClient("b", 2, key, 0)
	r.Register(key, a)
	r.Register(key, b)

	d := NewDispatcher(testLogger(), r, nil)
	d.Deliver(key, ErrorFrame{Error: "x"})

	for _, c := range []*Client{a, b} {
		select {
		case payload := <-c.Send:
			var f ErrorFrame
			if err := json.Unmarshal(payload, &f); err != nil || f.Error != "x" {
				t.Fatalf("client %s got bad payload %s (err=%v)", c.SessionID, payload, err)
			}
		default:
			t.Fatalf("client %s received nothing", c.SessionID)
		}
	}
}

func TestDispatcherSkipsOtherConversations(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testLogger())
	key := ConversationKey{ID: 1, Kind: KindPersonal}
	other := ConversationKey{ID: 2, Kind: KindPersonal}
	a := NewClient("a", 1, key, 0)
	c := NewClient("c", 3, other, 0)
	r.Register(key, a)
	r.Register(other, c)

	NewDispatcher(testLogger(), r, nil).Deliver(key, ErrorFrame{Error: "x"})

	if len(c.Send) != 0 {
		t.Fatalf("client in other conversation received a frame")
	}
	if len(a.Send) != 1 {
		t.Fatalf("member did not receive the frame")
	}
}

func TestDispatcherToleratesStuckMember(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testLogger())
	key := ConversationKey{ID: 1, Kind: KindPersonal}

	stuck := NewClient("stuck", 1, key, 1)
	ok := NewClient("ok", 2, key, 0)
	r.Register(key, stuck)
	r.Register(key, ok)

	// Fill the stuck member's queue so the next delivery must drop.
	if !stuck.enqueue([]byte(`{}`)) {
		t.Fatal("priming enqueue failed")
	}

	d := NewDispatcher(testLogger(), r, nil)
	d.Deliver(key, ErrorFrame{Error: "x"})

	if len(ok.Send) != 1 {
		t.Fatalf("healthy member missed the frame")
	}
	if len(stuck.Send) != 1 {
		t.Fatalf("stuck member queue grew: %d", len(stuck.Send))
	}
}

func TestDispatcherSkipsClosingMember(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testLogger())
	key := ConversationKey{ID: 1, Kind: KindPersonal}

	closing := NewClient("closing", 1, key, 0)
	ok := NewClient("ok", 2, key, 0)
	r.Register(key, closing)
	r.Register(key, ok)

	closing.Close()

	NewDispatcher(testLogger(), r, nil).Deliver(key, ErrorFrame{Error: "x"})

	if len(closing.Send) != 0 {
		t.Fatalf("closing member was enqueued to")
	}
	if len(ok.Send) != 1 {
		t.Fatalf("healthy member missed the frame")
	}

	// Close must stay idempotent under repeated shutdown paths.
	closing.Close()

	select {
	case <-closing.Done():
	case <-time.After(time.Second):
		t.Fatalf("done channel not closed")
	}
}
