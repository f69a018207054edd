package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/blackmichael/murmur/internal/domain"
)

// postColumns selects a post, its author's profile and whether the viewer
// bound into postJoins follows the author. Use with postRecord.
const postColumns = `
	p.id, p.author_id, p.content, p.created_at, p.is_anonymous, p.privacy, p.content_warning,
	pr.user_id, pr.handle, pr.display_name, pr.avatar_url, pr.updated_at,
	CASE WHEN f.follower_id IS NULL THEN 0 ELSE 1 END`

// postJoins takes one argument: the viewer id.
const postJoins = `
	LEFT JOIN follows f ON f.follower_id = ? AND f.following_id = p.author_id
	LEFT JOIN profiles pr ON pr.user_id = p.author_id`

// postRecord scans postColumns. Every field is nullable because bookmark
// listings left-join posts that may have been deleted.
type postRecord struct {
	id, authorID, content          sql.NullString
	createdAt                      sql.NullInt64
	anonymous                      sql.NullBool
	privacy, warning               sql.NullString
	profileID, handle, displayName sql.NullString
	avatarURL                      sql.NullString
	profileUpdatedAt               sql.NullInt64
	follows                        int64
}

func (rec *postRecord) dest() []any {
	return []any{
		&rec.id, &rec.authorID, &rec.content, &rec.createdAt, &rec.anonymous, &rec.privacy, &rec.warning,
		&rec.profileID, &rec.handle, &rec.displayName, &rec.avatarURL, &rec.profileUpdatedAt,
		&rec.follows,
	}
}

// feedRow converts the record, returning nil if no post was joined.
func (rec *postRecord) feedRow() *domain.FeedRow {
	if !rec.id.Valid {
		return nil
	}
	row := &domain.FeedRow{
		Post: domain.Post{
			ID:             rec.id.String,
			AuthorID:       rec.authorID.String,
			Content:        rec.content.String,
			CreatedAt:      fromMicros(rec.createdAt.Int64),
			IsAnonymous:    rec.anonymous.Bool,
			Privacy:        domain.Privacy(rec.privacy.String),
			ContentWarning: rec.warning.String,
		},
		FollowsAuthor: rec.follows != 0,
	}
	if rec.profileID.Valid {
		row.Author = &domain.Profile{
			UserID:      rec.profileID.String,
			Handle:      rec.handle.String,
			DisplayName: rec.displayName.String,
			AvatarURL:   rec.avatarURL.String,
			UpdatedAt:   fromMicros(rec.profileUpdatedAt.Int64),
		}
	}
	return row
}

// CreatePost inserts a new post with its media and hashtags. It reports false
// when a post with the same ID already exists, leaving that post untouched.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) (bool, error) {
	var inserted bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO posts (id, author_id, content, created_at, is_anonymous, privacy, content_warning)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`),
			post.ID,
			post.AuthorID,
			post.Content,
			toMicros(post.CreatedAt),
			post.IsAnonymous,
			string(post.Privacy),
			sql.NullString{String: post.ContentWarning, Valid: post.ContentWarning != ""},
		)
		if err != nil {
			return storageErr("insert post", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		inserted = true

		for i, ref := range post.Media {
			if _, err := tx.ExecContext(ctx, r.rebind(
				`INSERT INTO post_media (post_id, ord, ref) VALUES (?, ?, ?)`),
				post.ID, i, ref,
			); err != nil {
				return storageErr("insert post media", err)
			}
		}
		for _, tag := range post.Hashtags {
			if _, err := tx.ExecContext(ctx, r.rebind(
				`INSERT INTO post_hashtags (post_id, tag) VALUES (?, ?) ON CONFLICT (post_id, tag) DO NOTHING`),
				post.ID, tag,
			); err != nil {
				return storageErr("insert post hashtag", err)
			}
		}
		return nil
	})
	return inserted, err
}

// DeletePost removes a post owned by authorID along with its attachments.
// Bookmarks are left in place and show up as unavailable.
func (r *Repository) DeletePost(ctx context.Context, postID, authorID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`DELETE FROM posts WHERE id = ? AND author_id = ?`), postID, authorID)
		if err != nil {
			return storageErr("delete post", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM post_media WHERE post_id = ?`), postID); err != nil {
			return storageErr("delete post media", err)
		}
		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM post_hashtags WHERE post_id = ?`), postID); err != nil {
			return storageErr("delete post hashtags", err)
		}
		return nil
	})
}

// GetPost returns a single post as seen by viewerID.
func (r *Repository) GetPost(ctx context.Context, postID, viewerID string) (*domain.FeedRow, error) {
	rows, err := r.queryFeed(ctx, viewerID, `p.id = ?`, []any{postID}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

// HomeFeedPosts returns the viewer's own posts plus non-private posts by
// accounts the viewer follows.
func (r *Repository) HomeFeedPosts(ctx context.Context, viewerID string, after *domain.Cursor, limit int) ([]domain.FeedRow, error) {
	return r.queryFeed(ctx, viewerID,
		`(p.author_id = ? OR (f.follower_id IS NOT NULL AND p.privacy <> 'private'))`,
		[]any{viewerID}, after, limit)
}

// DiscoveryPosts returns public posts by authors the viewer neither is nor
// follows, optionally restricted to a hashtag.
func (r *Repository) DiscoveryPosts(ctx context.Context, viewerID, tag string, after *domain.Cursor, limit int) ([]domain.FeedRow, error) {
	where := `p.privacy = 'public' AND p.author_id <> ? AND f.follower_id IS NULL`
	args := []any{viewerID}
	if tag != "" {
		where += ` AND EXISTS (SELECT 1 FROM post_hashtags t WHERE t.post_id = p.id AND t.tag = ?)`
		args = append(args, tag)
	}
	return r.queryFeed(ctx, viewerID, where, args, after, limit)
}

// queryFeed runs a keyset-paginated post query ordered by (created_at, id)
// descending and hydrates media and hashtags.
func (r *Repository) queryFeed(ctx context.Context, viewerID, where string, whereArgs []any, after *domain.Cursor, limit int) ([]domain.FeedRow, error) {
	query := `SELECT ` + postColumns + ` FROM posts p ` + postJoins + ` WHERE ` + where
	args := append([]any{viewerID}, whereArgs...)
	if after != nil {
		query += ` AND (p.created_at, p.id) < (?, ?)`
		args = append(args, toMicros(after.At), after.ID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, storageErr("query posts", err)
	}
	defer rows.Close()

	var result []domain.FeedRow
	for rows.Next() {
		var rec postRecord
		if err := rows.Scan(rec.dest()...); err != nil {
			return nil, storageErr("scan post", err)
		}
		result = append(result, *rec.feedRow())
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate posts", err)
	}
	// Release the connection before hydrating; SQLite runs with only one.
	rows.Close()

	posts := make([]*domain.Post, len(result))
	for i := range result {
		posts[i] = &result[i].Post
	}
	if err := r.loadAttachments(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return result, nil
}

// loadAttachments fills Media and Hashtags for the given posts.
func (r *Repository) loadAttachments(ctx context.Context, q querier, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Post, len(posts))
	ids := make([]any, 0, len(posts))
	for _, p := range posts {
		if _, dup := byID[p.ID]; dup {
			continue
		}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	in := placeholders(len(ids))

	load := func(op, query string, apply func(p *domain.Post, value string)) error {
		rows, err := q.QueryContext(ctx, r.rebind(query), ids...)
		if err != nil {
			return storageErr(op, err)
		}
		defer rows.Close()
		for rows.Next() {
			var postID, value string
			if err := rows.Scan(&postID, &value); err != nil {
				return storageErr(op, err)
			}
			if p, ok := byID[postID]; ok {
				apply(p, value)
			}
		}
		if err := rows.Err(); err != nil {
			return storageErr(op, err)
		}
		return nil
	}

	if err := load("query post media",
		`SELECT post_id, ref FROM post_media WHERE post_id IN (`+in+`) ORDER BY post_id, ord`,
		func(p *domain.Post, ref string) { p.Media = append(p.Media, ref) },
	); err != nil {
		return err
	}
	return load("query post hashtags",
		`SELECT post_id, tag FROM post_hashtags WHERE post_id IN (`+in+`) ORDER BY post_id, tag`,
		func(p *domain.Post, tag string) { p.Hashtags = append(p.Hashtags, tag) },
	)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
