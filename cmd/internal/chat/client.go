package chat

import "sync"

// Client represents one authenticated websocket session.
//
// Design notes:
//   - Send carries frames already serialized by the dispatcher and is
//     intentionally never closed by the server, so concurrent broadcasters
//     cannot panic on a closing client.
//   - done signals the session goroutines to stop; Close is idempotent.
type Client struct {
	SessionID    string
	UserID       int64
	Conversation ConversationKey
	Send         chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(sessionID string, userID int64, key ConversationKey, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	return &Client{
		SessionID:    sessionID,
		UserID:       userID,
		Conversation: key,
		Send:         make(chan []byte, sendQueueSize),
		done:         make(chan struct{}),
	}
}

// Done returns a channel closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
// It does NOT close Send; see the type comment.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// enqueue offers a serialized frame to the client's send queue without
// blocking. It reports false when the client is shutting down or the queue
// is full (the frame is dropped).
func (c *Client) enqueue(payload []byte) bool {
	if c == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}
