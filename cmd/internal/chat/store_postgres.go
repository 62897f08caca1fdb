package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
//   - PostgresStore does NOT own the pgx pool. The caller closes the pool.
//   - Close() is therefore a no-op.
//
// Duplicate detection rides on the UNIQUE constraint over
// messages.message_hash: a unique violation maps to ErrDuplicateMessage.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "public").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("chat: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("chat: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "public",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("chat: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// CreateMessage inserts a message; the unique index on message_hash rejects
// duplicates atomically under concurrency.
func (s *PostgresStore) CreateMessage(ctx context.Context, in CreateMessageInput) (Message, error) {
	if s == nil || s.pool == nil {
		return Message{}, errors.New("chat: nil store")
	}
	if in.ChatID <= 0 || in.SenderID <= 0 || in.Text == "" || in.Fingerprint == "" {
		return Message{}, errors.New("chat: invalid input")
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	messages := pgIdent(s.schema, "messages")

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+messages+` (chat_id, sender_id, text, timestamp, is_read, message_hash)
		 VALUES ($1, $2, $3, $4, FALSE, $5)
		 RETURNING id`,
		in.ChatID, in.SenderID, in.Text, now, in.Fingerprint,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Message{}, ErrDuplicateMessage
		}
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	return Message{
		ID:          id,
		ChatID:      in.ChatID,
		SenderID:    in.SenderID,
		Text:        in.Text,
		Timestamp:   now,
		IsRead:      false,
		Fingerprint: in.Fingerprint,
	}, nil
}

// MarkMessageRead sets is_read and returns the after-state. The UPDATE is
// idempotent: re-marking a read row succeeds without changing anything.
func (s *PostgresStore) MarkMessageRead(ctx context.Context, messageID int64) (Message, error) {
	if s == nil || s.pool == nil {
		return Message{}, errors.New("chat: nil store")
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	messages := pgIdent(s.schema, "messages")

	var m Message
	err := s.pool.QueryRow(ctx,
		`UPDATE `+messages+`
		    SET is_read = TRUE
		  WHERE id = $1
		RETURNING id, chat_id, sender_id, text, timestamp, is_read, message_hash`,
		messageID,
	).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.Timestamp, &m.IsRead, &m.Fingerprint)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrMessageNotFound
	}
	if err != nil {
		return Message{}, fmt.Errorf("mark read: %w", err)
	}
	return m, nil
}

// ResolveConversation resolves a chat or group key. A group resolves to its
// backing chat id for persistence.
func (s *PostgresStore) ResolveConversation(ctx context.Context, key ConversationKey) (Conversation, error) {
	if s == nil || s.pool == nil {
		return Conversation{}, errors.New("chat: nil store")
	}
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}

	switch key.Kind {
	case KindGroup:
		groups := pgIdent(s.schema, "groups")

		var out Conversation
		err := s.pool.QueryRow(ctx,
			`SELECT COALESCE(name, ''), chat_id FROM `+groups+` WHERE id = $1`,
			key.ID,
		).Scan(&out.Name, &out.ChatID)
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrConversationNotFound
		}
		if err != nil {
			return Conversation{}, fmt.Errorf("resolve group: %w", err)
		}
		out.Key = key
		return out, nil

	default:
		chats := pgIdent(s.schema, "chats")

		var out Conversation
		err := s.pool.QueryRow(ctx,
			`SELECT COALESCE(name, ''), COALESCE(user1_id, 0), COALESCE(user2_id, 0)
			   FROM `+chats+` WHERE id = $1`,
			key.ID,
		).Scan(&out.Name, &out.User1ID, &out.User2ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrConversationNotFound
		}
		if err != nil {
			return Conversation{}, fmt.Errorf("resolve chat: %w", err)
		}
		out.Key = key
		out.ChatID = key.ID
		return out, nil
	}
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
