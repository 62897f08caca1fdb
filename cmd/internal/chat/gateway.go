package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"parley/cmd/internal/auth"
	"parley/cmd/internal/ids"
)

// GatewayConfig tunes the websocket session handler. Zero values fall back
// to the defaults in limits.go.
type GatewayConfig struct {
	OriginRequired bool
	AllowedOrigins []string
	DevInsecure    bool

	WriteTimeout    time.Duration
	ReadIdleTimeout time.Duration
	SendQueueSize   int

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	RateLimitEvents int
	RateLimitWindow time.Duration
}

// Gateway is the WebSocket entrypoint of the chat backend.
//
// Per connection it runs the session lifecycle:
// authenticate -> bind to a conversation -> register -> receive loop -> close.
// Pre-bind failures close the socket with a policy-violation status; post-bind
// application failures are answered with error frames and keep the session.
type Gateway struct {
	log        *slog.Logger
	registry   *Registry
	dispatcher *Dispatcher
	store      Store
	verifier   auth.Verifier
	metrics    *Metrics

	originRequired bool
	allowedOrigins []string
	originPatterns []string
	devInsecure    bool

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	sendQueueSize   int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration

	rateEvents int
	rateWindow time.Duration
}

// NewGateway constructs a Gateway. registry, store and verifier are required;
// metrics may be nil.
func NewGateway(
	log *slog.Logger,
	registry *Registry,
	store Store,
	verifier auth.Verifier,
	metrics *Metrics,
	cfg GatewayConfig,
) *Gateway {
	g := &Gateway{
		log:        log,
		registry:   registry,
		dispatcher: NewDispatcher(log, registry, metrics),
		store:      store,
		verifier:   verifier,
		metrics:    metrics,

		originRequired: cfg.OriginRequired,
		allowedOrigins: cfg.AllowedOrigins,
		devInsecure:    cfg.DevInsecure,

		writeTimeout:     nonZero(cfg.WriteTimeout, defaultWriteTimeout),
		readIdleTimeout:  nonZero(cfg.ReadIdleTimeout, defaultReadIdleTimeout),
		sendQueueSize:    cfg.SendQueueSize,
		heartbeatEvery:   nonZero(cfg.HeartbeatInterval, defaultHeartbeatInterval),
		heartbeatTimeout: nonZero(cfg.HeartbeatTimeout, defaultHeartbeatTimeout),
		rateEvents:       cfg.RateLimitEvents,
		rateWindow:       cfg.RateLimitWindow,
	}

	if g.sendQueueSize <= 0 {
		g.sendQueueSize = defaultSendQueueSize
	}
	if g.sendQueueSize < minSendQueueSize {
		g.sendQueueSize = minSendQueueSize
	}

	// websocket.Accept authorizes same-host origins by default; cross-origin
	// requires host patterns, derived here so both layers agree. A configured
	// "*" must disable the library check too, or enforceOrigin would admit an
	// origin that Accept then rejects.
	g.originPatterns = deriveOriginPatterns(g.allowedOrigins)
	for _, a := range g.allowedOrigins {
		if strings.TrimSpace(a) == "*" {
			g.devInsecure = true
			break
		}
	}

	return g
}

// Registry exposes the registry for wiring and tests.
func (g *Gateway) Registry() *Registry { return g.registry }

// ServeHTTP adapter so the gateway can be mounted as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and runs one session to completion.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Authenticating: a bearer token must be present and valid before
	// anything else happens on the socket.
	query := r.URL.Query()
	token := strings.TrimSpace(query.Get("token"))
	if token == "" {
		g.closePolicy(conn, "missing token")
		return
	}

	principal, err := g.verifier.VerifyToken(ctx, token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			g.log.Error("ws.auth.fail", "err", err)
		}
		g.closePolicy(conn, "invalid token")
		return
	}

	// Bound: exactly one of chat_id / group_id selects the conversation.
	key, err := conversationTarget(query.Get("chat_id"), query.Get("group_id"))
	if err != nil {
		g.closePolicy(conn, err.Error())
		return
	}

	conv, err := g.store.ResolveConversation(ctx, key)
	if errors.Is(err, ErrConversationNotFound) {
		g.closePolicy(conn, "conversation not found")
		return
	}
	if err != nil {
		g.log.Error("ws.resolve.fail", "conversation", key.String(), "err", err)
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}

	sessionID := ids.MustULID(time.Now().UTC())
	client := NewClient(sessionID, principal.UserID, key, g.sendQueueSize)

	// Active: register and run the receive loop.
	g.registry.Register(key, client)
	g.metrics.connectionOpened()
	g.log.Info("ws.session.open",
		"session_id", sessionID,
		"user_id", principal.UserID,
		"conversation", key.String(),
	)

	var closeOnce sync.Once

	// shutdown is idempotent. It does NOT close client.Send; membership
	// removal happens before client.Close so broadcasters drop cleanly.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.registry.Unregister(key, client)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
			g.metrics.connectionClosed()
			g.log.Info("ws.session.close",
				"session_id", sessionID,
				"code", int(code),
				"reason", reason,
			)
		})
	}

	rl := NewRateLimiter(g.rateEvents, g.rateWindow)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case payload := <-client.Send:
				if err := g.writeFrame(ctx, conn, payload); err != nil {
					g.log.Info("ws.write.fail", "session_id", sessionID, "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("ws.ping.fail", "session_id", sessionID, "failures", failures, "err", err)
					if failures >= maxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdleTimeout)
		data, err := readFrame(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("ws.read.fail", "session_id", sessionID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break readLoop
		}

		now := time.Now().UTC()
		if !rl.Allow(now) {
			// The close frame carries the reason; an error frame enqueued here
			// would race the shutdown and usually be lost.
			shutdown(websocket.StatusPolicyViolation, "too many events")
			break readLoop
		}

		cmd, err := DecodeCommand(data)
		if err != nil {
			g.metrics.frameReceived("invalid")
			g.sendError(client, err.Error())
			continue readLoop
		}

		// One frame at a time: persist and broadcast complete before the
		// next read, so a single connection never reorders its own effects.
		switch c := cmd.(type) {
		case SendMessage:
			g.metrics.frameReceived(ActionSendMessage)
			g.handleSend(ctx, client, conv, c, now)
		case MarkAsRead:
			g.metrics.frameReceived(ActionMarkAsRead)
			g.handleMarkRead(ctx, client, c)
		default:
			// DecodeCommand only yields the cases above.
			g.sendError(client, "unsupported action")
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

// ---- frame handlers ----

func (g *Gateway) handleSend(ctx context.Context, client *Client, conv Conversation, cmd SendMessage, now time.Time) {
	fp := Fingerprint(conv.ChatID, cmd.SenderID, cmd.Text)

	msg, err := g.store.CreateMessage(ctx, CreateMessageInput{
		ChatID:      conv.ChatID,
		SenderID:    cmd.SenderID,
		Text:        cmd.Text,
		Fingerprint: fp,
		Now:         now,
	})
	switch {
	case errors.Is(err, ErrDuplicateMessage):
		g.metrics.duplicateRejected()
		g.sendError(client, "message already sent")
		return
	case err != nil:
		g.log.Error("ws.send.store.fail", "session_id", client.SessionID, "err", err)
		g.sendError(client, "internal server error")
		return
	}

	g.metrics.messagePersisted()
	g.dispatcher.Deliver(client.Conversation, NewMessageFrame(ActionNewMessage, msg))
}

func (g *Gateway) handleMarkRead(ctx context.Context, client *Client, cmd MarkAsRead) {
	msg, err := g.store.MarkMessageRead(ctx, cmd.MessageID)
	switch {
	case errors.Is(err, ErrMessageNotFound):
		g.sendError(client, "message not found")
		return
	case err != nil:
		g.log.Error("ws.mark_read.store.fail", "session_id", client.SessionID, "err", err)
		g.sendError(client, "internal server error")
		return
	}

	g.dispatcher.Deliver(client.Conversation, NewMessageFrame(ActionMessageRead, msg))
}

// sendError enqueues a local error frame to a single client, best effort.
func (g *Gateway) sendError(client *Client, msg string) {
	payload, err := json.Marshal(ErrorFrame{Error: msg})
	if err != nil {
		return
	}
	if !client.enqueue(payload) {
		g.log.Info("ws.error_frame.drop", "session_id", client.SessionID, "msg", msg)
	}
}

func (g *Gateway) closePolicy(conn *websocket.Conn, reason string) {
	g.metrics.authRejected()
	g.log.Info("ws.reject.policy", "reason", reason)
	_ = conn.Close(websocket.StatusPolicyViolation, reason)
}

// ---- initiation parameters ----

// conversationTarget picks the conversation key from the query string.
// Exactly one of chat_id / group_id must be present and a positive integer.
func conversationTarget(chatStr, groupStr string) (ConversationKey, error) {
	chatStr = strings.TrimSpace(chatStr)
	groupStr = strings.TrimSpace(groupStr)

	switch {
	case chatStr == "" && groupStr == "":
		return ConversationKey{}, errors.New("missing chat_id or group_id")
	case chatStr != "" && groupStr != "":
		return ConversationKey{}, errors.New("both chat_id and group_id given")
	}

	raw, kind := chatStr, KindPersonal
	if groupStr != "" {
		raw, kind = groupStr, KindGroup
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return ConversationKey{}, errors.New("invalid conversation id")
	}
	return ConversationKey{ID: id, Kind: kind}, nil
}

// ---- frame IO ----

func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return nil, errors.New("unsupported message type")
	}
	return data, nil
}

func (g *Gateway) writeFrame(parent context.Context, conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(parent, g.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

func nonZero(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
