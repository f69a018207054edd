package domain

import (
	"context"
	"time"
)

// PostRepository defines persistence operations for posts and the feed reads
// built on them. Feed reads return rows ordered by (CreatedAt, ID) descending,
// strictly after the cursor when one is given.
type PostRepository interface {
	// CreatePost inserts a post with its media and hashtags. Inserting an ID
	// that already exists is a no-op and reports false.
	CreatePost(ctx context.Context, post *Post) (bool, error)

	// DeletePost removes a post owned by authorID. Returns ErrNotFound if no
	// such post exists for that author.
	DeletePost(ctx context.Context, postID, authorID string) error

	// GetPost returns a single post as seen by viewerID, or ErrNotFound.
	GetPost(ctx context.Context, postID, viewerID string) (*FeedRow, error)

	// HomeFeedPosts returns posts by viewerID and by accounts viewerID
	// follows, excluding other authors' private posts.
	HomeFeedPosts(ctx context.Context, viewerID string, after *Cursor, limit int) ([]FeedRow, error)

	// DiscoveryPosts returns public posts whose author is neither viewerID
	// nor followed by viewerID. An empty tag means no hashtag filter.
	DiscoveryPosts(ctx context.Context, viewerID, tag string, after *Cursor, limit int) ([]FeedRow, error)
}

// GraphRepository defines persistence operations for follow edges.
type GraphRepository interface {
	// Follow inserts the edge; an existing edge is left untouched.
	Follow(ctx context.Context, followerID, followingID string, at time.Time) error

	// Unfollow deletes the edge if it exists.
	Unfollow(ctx context.Context, followerID, followingID string) error

	// IsFollowing reports whether the edge exists.
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)

	// ListFollowing returns the ids userID follows, most recent first.
	ListFollowing(ctx context.Context, userID string) ([]string, error)

	// ListFollowers returns the ids following userID, most recent first.
	ListFollowers(ctx context.Context, userID string) ([]string, error)
}

// BookmarkRow is a bookmark joined against the post store. Post is nil when
// the bookmarked post no longer exists.
type BookmarkRow struct {
	PostID    string
	CreatedAt time.Time
	Post      *FeedRow
}

// BookmarkRepository defines persistence operations for bookmarks.
type BookmarkRepository interface {
	// ToggleBookmark removes the bookmark if present, otherwise inserts it,
	// atomically. Returns whether the bookmark exists afterwards.
	ToggleBookmark(ctx context.Context, userID, postID string, at time.Time) (bool, error)

	// RemoveBookmark deletes the bookmark and reports whether it existed.
	RemoveBookmark(ctx context.Context, userID, postID string) (bool, error)

	// ListBookmarks returns bookmarks ordered by (CreatedAt, PostID) descending.
	ListBookmarks(ctx context.Context, userID string, after *Cursor, limit int) ([]BookmarkRow, error)

	// DeleteDanglingBookmarks removes bookmarks whose post no longer exists.
	DeleteDanglingBookmarks(ctx context.Context) (int64, error)
}

// ConversationRepository defines persistence operations for conversations,
// participants and messages.
type ConversationRepository interface {
	// FindConversationByPair returns the id of the conversation with the
	// given canonical pair key, or ErrNotFound.
	FindConversationByPair(ctx context.Context, pairKey string) (string, error)

	// CreateConversation inserts the conversation and both participant rows
	// in one transaction. Returns ErrConflict if the pair key already exists.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetConversation returns a conversation with its participants, or
	// ErrNotFound.
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)

	// AppendMessage inserts msg and bumps the conversation's updated_at in one
	// transaction. It overwrites msg.CreatedAt with the assigned timestamp,
	// which is strictly greater than any earlier message in the conversation.
	// Returns ErrNotFound or ErrNotAParticipant.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns messages ordered by (CreatedAt, ID) ascending,
	// strictly after the cursor when one is given.
	ListMessages(ctx context.Context, conversationID string, after *Cursor, limit int) ([]Message, error)

	// ListConversations returns userID's conversations ordered by UpdatedAt
	// descending.
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)
}

// ProfileRepository defines persistence operations for user profiles.
type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}

// CursorRepository defines persistence operations for ingest relay cursors.
type CursorRepository interface {
	// GetCursor retrieves the last-processed relay sequence for the given
	// service name. Returns 0 if no cursor has been saved.
	GetCursor(ctx context.Context, service string) (int64, error)

	// UpdateCursor persists the relay sequence so we can resume on restart.
	UpdateCursor(ctx context.Context, service string, cursor int64) error
}
