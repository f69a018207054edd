package store

import (
	"context"

	"github.com/blackmichael/murmur/internal/domain"
)

// UpsertProfile inserts or replaces a user's profile.
func (r *Repository) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO profiles (user_id, handle, display_name, avatar_url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			handle = excluded.handle,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`),
		p.UserID, p.Handle, p.DisplayName, p.AvatarURL, toMicros(p.UpdatedAt),
	)
	if err != nil {
		return storageErr("upsert profile", err)
	}
	return nil
}

// GetProfile returns a user's profile or domain.ErrNotFound.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p         domain.Profile
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT user_id, handle, display_name, avatar_url, updated_at
		FROM profiles WHERE user_id = ?`), userID,
	).Scan(&p.UserID, &p.Handle, &p.DisplayName, &p.AvatarURL, &updatedAt)
	if isNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("query profile", err)
	}
	p.UpdatedAt = fromMicros(updatedAt)
	return &p, nil
}
