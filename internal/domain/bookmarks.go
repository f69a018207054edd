package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackmichael/murmur/internal/metrics"
)

// BookmarkEntry is one saved post. Unavailable entries refer to posts that
// were deleted or that the user can no longer see; they carry no post body.
type BookmarkEntry struct {
	PostID       string
	BookmarkedAt time.Time
	Unavailable  bool
	Post         *PostView
}

// BookmarkPage is one page of a user's bookmarks, most recent first.
type BookmarkPage struct {
	Cursor    string
	Bookmarks []BookmarkEntry
}

// BookmarkService maintains each user's saved-post set.
type BookmarkService struct {
	repo    BookmarkRepository
	posts   PostRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBookmarkService(repo BookmarkRepository, posts PostRepository, m *metrics.Metrics, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{
		repo:    repo,
		posts:   posts,
		metrics: m,
		logger:  logger,
	}
}

// ToggleBookmark flips the bookmark for (userID, postID) and reports whether
// it is set afterwards. Setting a bookmark requires the post to be visible to
// the user; clearing one never does.
func (s *BookmarkService) ToggleBookmark(ctx context.Context, userID, postID string) (bool, error) {
	if userID == "" {
		return false, ErrUnauthorized
	}
	if postID == "" {
		return false, fmt.Errorf("%w: post id is required", ErrInvalidArgument)
	}

	row, err := s.posts.GetPost(ctx, postID, userID)
	switch {
	case err == nil && CanView(userID, &row.Post, row.FollowsAuthor):
		bookmarked, err := s.repo.ToggleBookmark(ctx, userID, postID, time.Now().UTC())
		if err != nil {
			return false, fmt.Errorf("toggle bookmark: %w", err)
		}
		return bookmarked, nil
	case err == nil || errors.Is(err, ErrNotFound):
		// The post is gone or hidden: only an existing bookmark can be cleared.
		removed, err := s.repo.RemoveBookmark(ctx, userID, postID)
		if err != nil {
			return false, fmt.Errorf("remove bookmark: %w", err)
		}
		if !removed {
			return false, fmt.Errorf("bookmark post %s: %w", postID, ErrNotFound)
		}
		return false, nil
	default:
		return false, fmt.Errorf("load post %s: %w", postID, err)
	}
}

// ListBookmarks returns a page of userID's bookmarks. Each bookmarked post
// goes through the same visibility rule and projection as the feeds.
func (s *BookmarkService) ListBookmarks(ctx context.Context, userID, cursor string, limit int) (*BookmarkPage, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	rows, err := s.repo.ListBookmarks(ctx, userID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	page := &BookmarkPage{Bookmarks: make([]BookmarkEntry, 0, len(rows))}
	for _, row := range rows {
		entry := BookmarkEntry{PostID: row.PostID, BookmarkedAt: row.CreatedAt}
		if row.Post != nil && CanView(userID, &row.Post.Post, row.Post.FollowsAuthor) {
			view := Project(&row.Post.Post, row.Post.Author)
			entry.Post = &view
		} else {
			entry.Unavailable = true
		}
		page.Bookmarks = append(page.Bookmarks, entry)
	}

	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.Cursor = EncodeCursor(last.CreatedAt, last.PostID)
	}
	return page, nil
}

// StartPruneJob runs a background loop that removes bookmarks whose post has
// been deleted. It runs immediately on start and then repeats at the given
// interval. It blocks until ctx is cancelled.
func (s *BookmarkService) StartPruneJob(ctx context.Context, interval time.Duration) {
	s.prune(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *BookmarkService) prune(ctx context.Context) {
	deleted, err := s.repo.DeleteDanglingBookmarks(ctx)
	if err != nil {
		s.logger.Error("bookmark prune failed", "error", err)
		return
	}
	if deleted > 0 {
		s.metrics.BookmarksPruned(deleted)
		s.logger.Info("bookmark prune complete", "deleted", deleted)
	}
}
