package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint computes the deduplication key for a message submission:
// hex SHA-256 over "<chat_id>_<sender_id>_<text>".
//
// The byte layout is wire-stable; existing rows carry hashes in this exact
// format, so the separator and field order must not change. Uniqueness is
// enforced by the Store, not here.
func Fingerprint(chatID, senderID int64, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d_%d_%s", chatID, senderID, text)))
	return hex.EncodeToString(sum[:])
}
