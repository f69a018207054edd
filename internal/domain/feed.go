package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPageSize is used when a caller passes a non-positive limit.
	DefaultPageSize = 50

	// MaxPageSize caps every paginated read.
	MaxPageSize = 100
)

// FeedPage is one page of a feed. Cursor is empty on the last page.
type FeedPage struct {
	Cursor string
	Posts  []PostView
}

// Cursor is a keyset position: the (time, id) of the last item already
// returned. Callers only ever see its encoded form.
type Cursor struct {
	At time.Time
	ID string
}

// EncodeCursor returns the opaque token for position (at, id).
// The token is base64url of "unixMicros::id".
func EncodeCursor(at time.Time, id string) string {
	raw := fmt.Sprintf("%d::%s", at.UnixMicro(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means
// "from the start" and yields a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidArgument)
	}
	parts := strings.SplitN(string(raw), "::", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidArgument)
	}
	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp in cursor", ErrInvalidArgument)
	}
	return &Cursor{At: time.UnixMicro(micros).UTC(), ID: parts[1]}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}
