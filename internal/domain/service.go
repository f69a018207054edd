package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackmichael/murmur/internal/metrics"
)

// FeedService is the feed composer. It owns post creation and deletion and is
// the single point that applies the visibility rule and the anonymous-author
// projection to posts leaving the core.
type FeedService struct {
	repo    PostRepository
	cursors CursorRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFeedService creates a FeedService.
func NewFeedService(repo PostRepository, cursors CursorRepository, m *metrics.Metrics, logger *slog.Logger) *FeedService {
	return &FeedService{
		repo:    repo,
		cursors: cursors,
		metrics: m,
		logger:  logger,
	}
}

// CreatePost validates and stores a new post by authorID.
func (s *FeedService) CreatePost(ctx context.Context, authorID string, in NewPost) (*PostView, error) {
	if authorID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidArgument)
	}
	privacy, err := ParsePrivacy(in.Privacy)
	if err != nil {
		return nil, err
	}

	media := make([]string, 0, len(in.Media))
	for _, ref := range in.Media {
		if ref = strings.TrimSpace(ref); ref != "" {
			media = append(media, ref)
		}
	}

	id := in.ID
	if id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate post id: %w", err)
		}
		id = v7.String()
	}

	post := &Post{
		ID:             id,
		AuthorID:       authorID,
		Content:        in.Content,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		IsAnonymous:    in.IsAnonymous,
		Privacy:        privacy,
		ContentWarning: strings.TrimSpace(in.ContentWarning),
		Media:          media,
		Hashtags:       NormalizeHashtags(in.Hashtags),
	}
	inserted, err := s.repo.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if !inserted {
		return s.existingPost(ctx, authorID, id)
	}
	s.metrics.PostCreated()

	view := Project(post, nil)
	return &view, nil
}

// existingPost resolves a create that hit an ID already in storage. The same
// author replaying the ID gets the stored post back; anyone else is refused.
func (s *FeedService) existingPost(ctx context.Context, authorID, postID string) (*PostView, error) {
	row, err := s.repo.GetPost(ctx, postID, authorID)
	if err != nil {
		return nil, fmt.Errorf("load existing post %s: %w", postID, err)
	}
	if row.Post.AuthorID != authorID {
		return nil, fmt.Errorf("%w: post id %s is already taken", ErrInvalidArgument, postID)
	}
	view := Project(&row.Post, row.Author)
	return &view, nil
}

// DeletePost removes a post. Only its author may delete it; anyone else gets
// ErrNotFound so that the post's existence is not revealed.
func (s *FeedService) DeletePost(ctx context.Context, actorID, postID string) error {
	if actorID == "" {
		return ErrUnauthorized
	}
	if err := s.repo.DeletePost(ctx, postID, actorID); err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	s.metrics.PostDeleted()
	return nil
}

// GetPost returns a single post if viewerID may see it, ErrNotFound otherwise.
func (s *FeedService) GetPost(ctx context.Context, viewerID, postID string) (*PostView, error) {
	row, err := s.repo.GetPost(ctx, postID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	if !CanView(viewerID, &row.Post, row.FollowsAuthor) {
		return nil, fmt.Errorf("get post %s: %w", postID, ErrNotFound)
	}
	view := Project(&row.Post, row.Author)
	return &view, nil
}

// HomeFeed returns posts by the viewer and by the accounts they follow,
// newest first. An unauthenticated viewer gets an empty page.
func (s *FeedService) HomeFeed(ctx context.Context, viewerID, cursor string, limit int) (*FeedPage, error) {
	if viewerID == "" {
		return &FeedPage{Posts: []PostView{}}, nil
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	rows, err := s.repo.HomeFeedPosts(ctx, viewerID, after, limit+1)
	if err != nil {
		s.logger.Error("home feed query failed", "viewer", viewerID, "limit", limit, "cursor", cursor, "error", err)
		return nil, fmt.Errorf("home feed: %w", err)
	}

	return s.page(viewerID, rows, limit, func(row *FeedRow) bool {
		return row.Post.AuthorID == viewerID || row.FollowsAuthor
	}), nil
}

// DiscoveryFeed returns public posts from authors the viewer does not already
// see in their home feed. viewerID may be empty. tag optionally restricts the
// feed to one hashtag.
func (s *FeedService) DiscoveryFeed(ctx context.Context, viewerID, cursor string, limit int, tag string) (*FeedPage, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	var normalizedTag string
	if tags := NormalizeHashtags([]string{tag}); len(tags) == 1 {
		normalizedTag = tags[0]
	}

	rows, err := s.repo.DiscoveryPosts(ctx, viewerID, normalizedTag, after, limit+1)
	if err != nil {
		s.logger.Error("discovery feed query failed", "viewer", viewerID, "limit", limit, "cursor", cursor, "error", err)
		return nil, fmt.Errorf("discovery feed: %w", err)
	}

	return s.page(viewerID, rows, limit, func(row *FeedRow) bool {
		if row.Post.Privacy != PrivacyPublic {
			return false
		}
		return viewerID == "" || (row.Post.AuthorID != viewerID && !row.FollowsAuthor)
	}), nil
}

// page trims rows to limit, drops anything failing the visibility rule or the
// feed's own membership rule, and projects the rest. rows holds up to limit+1
// entries; the extra one only signals that another page exists.
func (s *FeedService) page(viewerID string, rows []FeedRow, limit int, belongs func(*FeedRow) bool) *FeedPage {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	page := &FeedPage{Posts: make([]PostView, 0, len(rows))}
	for i := range rows {
		row := &rows[i]
		if !CanView(viewerID, &row.Post, row.FollowsAuthor) || !belongs(row) {
			s.logger.Warn("dropping post returned by storage that the viewer may not see",
				"post", row.Post.ID,
				"viewer", viewerID,
				"privacy", row.Post.Privacy,
			)
			continue
		}
		page.Posts = append(page.Posts, Project(&row.Post, row.Author))
	}

	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1].Post
		page.Cursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page
}

// GetCursor retrieves the last-processed relay sequence for the given service.
func (s *FeedService) GetCursor(ctx context.Context, service string) (int64, error) {
	return s.cursors.GetCursor(ctx, service)
}

// UpdateCursor persists the relay sequence for the given service.
func (s *FeedService) UpdateCursor(ctx context.Context, service string, cursor int64) error {
	return s.cursors.UpdateCursor(ctx, service, cursor)
}
