package store

import (
	"context"
	"time"
)

// Follow inserts the edge follower -> following; an existing edge is kept.
func (r *Repository) Follow(ctx context.Context, followerID, followingID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO follows (follower_id, following_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (follower_id, following_id) DO NOTHING`),
		followerID, followingID, toMicros(at),
	)
	if err != nil {
		return storageErr("insert follow", err)
	}
	return nil
}

// Unfollow deletes the edge follower -> following if present.
func (r *Repository) Unfollow(ctx context.Context, followerID, followingID string) error {
	_, err := r.db.ExecContext(ctx, r.rebind(
		`DELETE FROM follows WHERE follower_id = ? AND following_id = ?`),
		followerID, followingID,
	)
	if err != nil {
		return storageErr("delete follow", err)
	}
	return nil
}

// IsFollowing reports whether the edge follower -> following exists.
func (r *Repository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ?`),
		followerID, followingID,
	).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("query follow", err)
	}
	return true, nil
}

// ListFollowing returns the ids userID follows, most recent first.
func (r *Repository) ListFollowing(ctx context.Context, userID string) ([]string, error) {
	return r.listIDs(ctx, "query following", `
		SELECT following_id FROM follows
		WHERE follower_id = ?
		ORDER BY created_at DESC, following_id`, userID)
}

// ListFollowers returns the ids following userID, most recent first.
func (r *Repository) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	return r.listIDs(ctx, "query followers", `
		SELECT follower_id FROM follows
		WHERE following_id = ?
		ORDER BY created_at DESC, follower_id`, userID)
}

func (r *Repository) listIDs(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return ids, nil
}
