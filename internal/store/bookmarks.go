package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/blackmichael/murmur/internal/domain"
)

// ToggleBookmark deletes the bookmark if it exists and inserts it otherwise,
// in one transaction. Returns whether the bookmark exists afterwards, or
// ErrNotFound when inserting and the post no longer exists.
func (r *Repository) ToggleBookmark(ctx context.Context, userID, postID string, at time.Time) (bool, error) {
	var bookmarked bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`DELETE FROM bookmarks WHERE user_id = ? AND post_id = ?`), userID, postID)
		if err != nil {
			return storageErr("delete bookmark", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			bookmarked = false
			return nil
		}

		res, err = tx.ExecContext(ctx, r.rebind(`
			INSERT INTO bookmarks (user_id, post_id, created_at)
			SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS BIGINT)
			WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)
			ON CONFLICT (user_id, post_id) DO NOTHING`),
			userID, postID, toMicros(at), postID,
		)
		if err != nil {
			return storageErr("insert bookmark", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		bookmarked = true
		return nil
	})
	return bookmarked, err
}

// RemoveBookmark deletes the bookmark and reports whether it existed.
func (r *Repository) RemoveBookmark(ctx context.Context, userID, postID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(
		`DELETE FROM bookmarks WHERE user_id = ? AND post_id = ?`), userID, postID)
	if err != nil {
		return false, storageErr("delete bookmark", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListBookmarks returns userID's bookmarks joined with their posts, as seen
// by userID, ordered by (created_at, post_id) descending.
func (r *Repository) ListBookmarks(ctx context.Context, userID string, after *domain.Cursor, limit int) ([]domain.BookmarkRow, error) {
	query := `
		SELECT b.post_id, b.created_at, ` + postColumns + `
		FROM bookmarks b
		LEFT JOIN posts p ON p.id = b.post_id
		LEFT JOIN follows f ON f.follower_id = b.user_id AND f.following_id = p.author_id
		LEFT JOIN profiles pr ON pr.user_id = p.author_id
		WHERE b.user_id = ?`
	args := []any{userID}
	if after != nil {
		query += ` AND (b.created_at, b.post_id) < (?, ?)`
		args = append(args, toMicros(after.At), after.ID)
	}
	query += ` ORDER BY b.created_at DESC, b.post_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, storageErr("query bookmarks", err)
	}
	defer rows.Close()

	var result []domain.BookmarkRow
	for rows.Next() {
		var (
			row       domain.BookmarkRow
			createdAt int64
			rec       postRecord
		)
		dest := append([]any{&row.PostID, &createdAt}, rec.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, storageErr("scan bookmark", err)
		}
		row.CreatedAt = fromMicros(createdAt)
		row.Post = rec.feedRow()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate bookmarks", err)
	}
	rows.Close()

	var posts []*domain.Post
	for i := range result {
		if result[i].Post != nil {
			posts = append(posts, &result[i].Post.Post)
		}
	}
	if err := r.loadAttachments(ctx, r.db, posts); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteDanglingBookmarks removes bookmarks whose post no longer exists.
func (r *Repository) DeleteDanglingBookmarks(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM bookmarks
		WHERE NOT EXISTS (SELECT 1 FROM posts p WHERE p.id = bookmarks.post_id)`)
	if err != nil {
		return 0, storageErr("delete dangling bookmarks", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
