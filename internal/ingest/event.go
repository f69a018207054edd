package ingest

import (
	"encoding/json"
	"fmt"
)

// Relay event kinds.
const (
	kindPostCreate = "post.create"
	kindPostDelete = "post.delete"
)

// relayEvent is one JSON frame from the relay. Seq increases monotonically
// and is what the subscriber persists as its cursor.
type relayEvent struct {
	Seq  int64       `json:"seq"`
	Kind string      `json:"kind"`
	Post *postRecord `json:"post,omitempty"`
}

// postRecord is the post carried by a post.create or post.delete event.
// Delete events only need ID and AuthorID.
type postRecord struct {
	ID             string   `json:"id"`
	AuthorID       string   `json:"authorId"`
	Content        string   `json:"content"`
	IsAnonymous    bool     `json:"isAnonymous"`
	Privacy        string   `json:"privacy"`
	ContentWarning string   `json:"contentWarning"`
	Media          []string `json:"media"`
	Hashtags       []string `json:"hashtags"`
}

func parseEvent(data []byte) (*relayEvent, error) {
	var event relayEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Seq <= 0 {
		return nil, fmt.Errorf("event has no sequence number")
	}
	return &event, nil
}
