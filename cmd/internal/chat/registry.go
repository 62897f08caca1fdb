package chat

import (
	"log/slog"
	"sync"
)

// Registry owns the conversation -> live-connection-set mapping. It is the
// single shared-mutation point in the system.
//
// Locking discipline: the outer RWMutex guards only the map itself; each
// member set carries its own mutex, so operations on different conversations
// never serialize against each other. Entries are removed eagerly when their
// last member leaves; a drained set is tombstoned so a racing Register cannot
// land on a set that is being deleted.
type Registry struct {
	log *slog.Logger

	mu            sync.RWMutex
	conversations map[ConversationKey]*memberSet
}

type memberSet struct {
	mu      sync.Mutex
	gone    bool
	members map[*Client]struct{}
}

// add reports false when the set has been tombstoned and must be recreated.
func (s *memberSet) add(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return false
	}
	s.members[c] = struct{}{}
	return true
}

// remove reports whether the set is empty afterwards.
func (s *memberSet) remove(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, c)
	return len(s.members) == 0
}

// tombstoneIfEmpty marks the set dead if it is still empty and reports
// whether it did so.
func (s *memberSet) tombstoneIfEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.members) > 0 {
		return false
	}
	s.gone = true
	return true
}

func (s *memberSet) snapshot() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Client, 0, len(s.members))
	for c := range s.members {
		out = append(out, c)
	}
	return out
}

// NewRegistry constructs an empty Registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:           log,
		conversations: make(map[ConversationKey]*memberSet),
	}
}

// Register adds the connection to the conversation's member set, creating the
// set if absent. Adding a member that is already present is a no-op.
func (r *Registry) Register(key ConversationKey, c *Client) {
	if c == nil {
		return
	}
	for {
		if r.getOrCreate(key).add(c) {
			break
		}
		// Lost the race against eager removal; retry on a fresh set.
	}
	r.log.Debug("registry.join", "conversation", key.String(), "session_id", c.SessionID)
}

// Unregister removes the connection from the conversation's member set and
// drops the conversation entry entirely when the set drains. Absent
// conversations and absent members are no-ops.
func (r *Registry) Unregister(key ConversationKey, c *Client) {
	if c == nil {
		return
	}

	r.mu.RLock()
	s := r.conversations[key]
	r.mu.RUnlock()
	if s == nil {
		return
	}

	if s.remove(c) {
		r.mu.Lock()
		if cur := r.conversations[key]; cur == s && cur.tombstoneIfEmpty() {
			delete(r.conversations, key)
		}
		r.mu.Unlock()
	}
	r.log.Debug("registry.leave", "conversation", key.String(), "session_id", c.SessionID)
}

// Snapshot returns the current members of a conversation as a point-in-time
// copy. The returned slice is safe to iterate while members join and leave.
func (r *Registry) Snapshot(key ConversationKey) []*Client {
	r.mu.RLock()
	s := r.conversations[key]
	r.mu.RUnlock()
	if s == nil {
		return nil
	}
	return s.snapshot()
}

// Contains reports whether the conversation currently has a registry entry.
func (r *Registry) Contains(key ConversationKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conversations[key]
	return ok
}

func (r *Registry) getOrCreate(key ConversationKey) *memberSet {
	r.mu.RLock()
	s := r.conversations[key]
	r.mu.RUnlock()
	if s != nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s = r.conversations[key]; s != nil {
		return s
	}
	s = &memberSet{members: make(map[*Client]struct{})}
	r.conversations[key] = s
	return s
}
