package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidToken is returned for tokens that were not produced by Encode.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor marks the last row of a page in a list ordered by
// (scheduled_at DESC, id DESC). ScheduledUnix is in millis.
type Cursor struct {
	ID            uint64 `json:"id"`
	ScheduledUnix int64  `json:"scheduled_unix,omitempty"`
}

// First reports whether the cursor points at the start of the list.
func (c Cursor) First() bool { return c.ID == 0 }

// Encode turns a Cursor into an opaque URL-safe token.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a token from Encode. An empty token is the first page.
func Decode(token string) (Cursor, error) {
	var c Cursor
	if token == "" {
		return c, nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}
	if err := json.Unmarshal(b, &c); err != nil || c.ID == 0 {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
