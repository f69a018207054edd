package domain

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Profile is the public projection of an externally owned user.
type Profile struct {
	UserID      string
	Handle      string
	DisplayName string
	AvatarURL   string
	UpdatedAt   time.Time
}

// ProfileInput is what a user may set on their own profile.
type ProfileInput struct {
	Handle      string
	DisplayName string
	AvatarURL   string
}

// Conversation is a 1:1 thread. Participants is sorted ascending.
type Conversation struct {
	ID           string
	PairKey      string
	Participants [2]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Has reports whether userID is one of the two participants.
func (c *Conversation) Has(userID string) bool {
	return userID != "" && (c.Participants[0] == userID || c.Participants[1] == userID)
}

// Message is an entry in a conversation's append-only log.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}

// MessagePage is one page of a conversation, oldest first.
type MessagePage struct {
	Cursor   string
	Messages []Message
}

// ConversationSummary is a directory entry: the other participant and the
// latest message, if any.
type ConversationSummary struct {
	ConversationID string
	UpdatedAt      time.Time
	Other          Profile
	LastMessage    *Message
}

// SortPair returns a and b in ascending order.
func SortPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey is the canonical key of the unordered pair {a, b}. It is the hex
// BLAKE2b-256 digest of the length-prefixed sorted ids, so PairKey(a, b) ==
// PairKey(b, a) and distinct pairs cannot collide by concatenation.
func PairKey(a, b string) string {
	lo, hi := SortPair(a, b)
	sum := blake2b.Sum256(fmt.Appendf(nil, "%d:%s%s", len(lo), lo, hi))
	return hex.EncodeToString(sum[:])
}
