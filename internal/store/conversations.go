package store

import (
	"context"
	"database/sql"

	"github.com/blackmichael/murmur/internal/domain"
)

// FindConversationByPair returns the id of the conversation with the given
// canonical pair key.
func (r *Repository) FindConversationByPair(ctx context.Context, pairKey string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT id FROM conversations WHERE pair_key = ?`), pairKey,
	).Scan(&id)
	if isNoRows(err) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", storageErr("query conversation by pair", err)
	}
	return id, nil
}

// CreateConversation inserts the conversation and its two participants in a
// single transaction. The unique pair_key makes a concurrent duplicate fail
// with domain.ErrConflict and roll back as a whole.
func (r *Repository) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO conversations (id, pair_key, created_at, updated_at)
			VALUES (?, ?, ?, ?)`),
			conv.ID, conv.PairKey, toMicros(conv.CreatedAt), toMicros(conv.UpdatedAt),
		)
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		if err != nil {
			return storageErr("insert conversation", err)
		}

		for _, userID := range conv.Participants {
			if _, err := tx.ExecContext(ctx, r.rebind(
				`INSERT INTO participants (conversation_id, user_id) VALUES (?, ?)`),
				conv.ID, userID,
			); err != nil {
				return storageErr("insert participant", err)
			}
		}
		return nil
	})
}

// GetConversation returns a conversation with its participants.
func (r *Repository) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var (
		conv                 domain.Conversation
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT id, pair_key, created_at, updated_at FROM conversations WHERE id = ?`), conversationID,
	).Scan(&conv.ID, &conv.PairKey, &createdAt, &updatedAt)
	if isNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("query conversation", err)
	}
	conv.CreatedAt = fromMicros(createdAt)
	conv.UpdatedAt = fromMicros(updatedAt)

	ids, err := r.listIDs(ctx, "query participants",
		`SELECT user_id FROM participants WHERE conversation_id = ? ORDER BY user_id`, conversationID)
	if err != nil {
		return nil, err
	}
	copy(conv.Participants[:], ids)
	return &conv, nil
}

// AppendMessage bumps the conversation's updated_at and inserts the message
// in one transaction. The bump runs first so that it takes the row (or, in
// SQLite, database) write lock before the timestamp is chosen; the message
// gets max(msg.CreatedAt, previous updated_at + 1µs).
func (r *Repository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		now := toMicros(msg.CreatedAt)
		var assigned int64
		err := tx.QueryRowContext(ctx, r.rebind(`
			UPDATE conversations
			SET updated_at = CASE WHEN updated_at >= ? THEN updated_at + 1 ELSE ? END
			WHERE id = ?
			RETURNING updated_at`),
			now, now, msg.ConversationID,
		).Scan(&assigned)
		if isNoRows(err) {
			return domain.ErrNotFound
		}
		if err != nil {
			return storageErr("bump conversation", err)
		}

		var one int
		err = tx.QueryRowContext(ctx, r.rebind(
			`SELECT 1 FROM participants WHERE conversation_id = ? AND user_id = ?`),
			msg.ConversationID, msg.SenderID,
		).Scan(&one)
		if isNoRows(err) {
			return domain.ErrNotAParticipant
		}
		if err != nil {
			return storageErr("query participant", err)
		}

		if _, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
			VALUES (?, ?, ?, ?, ?)`),
			msg.ID, msg.ConversationID, msg.SenderID, msg.Content, assigned,
		); err != nil {
			return storageErr("insert message", err)
		}
		msg.CreatedAt = fromMicros(assigned)
		return nil
	})
}

// ListMessages returns messages ordered by (created_at, id) ascending.
func (r *Repository) ListMessages(ctx context.Context, conversationID string, after *domain.Cursor, limit int) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = ?`
	args := []any{conversationID}
	if after != nil {
		query += ` AND (created_at, id) > (?, ?)`
		args = append(args, toMicros(after.At), after.ID)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, storageErr("query messages", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			m         domain.Message
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &createdAt); err != nil {
			return nil, storageErr("scan message", err)
		}
		m.CreatedAt = fromMicros(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate messages", err)
	}
	return msgs, nil
}

// ListConversations returns userID's conversations with the other
// participant's profile and the latest message, most recently updated first.
func (r *Repository) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT c.id, c.updated_at,
			o.user_id, pr.handle, pr.display_name, pr.avatar_url, pr.updated_at,
			m.id, m.sender_id, m.content, m.created_at
		FROM participants me
		JOIN conversations c ON c.id = me.conversation_id
		JOIN participants o ON o.conversation_id = c.id AND o.user_id <> me.user_id
		LEFT JOIN profiles pr ON pr.user_id = o.user_id
		LEFT JOIN messages m ON m.id = (
			SELECT m2.id FROM messages m2
			WHERE m2.conversation_id = c.id
			ORDER BY m2.created_at DESC, m2.id DESC
			LIMIT 1)
		WHERE me.user_id = ?
		ORDER BY c.updated_at DESC, c.id DESC`), userID)
	if err != nil {
		return nil, storageErr("query conversations", err)
	}
	defer rows.Close()

	var result []domain.ConversationSummary
	for rows.Next() {
		var (
			s                           domain.ConversationSummary
			updatedAt                   int64
			handle, displayName, avatar sql.NullString
			profileUpdatedAt            sql.NullInt64
			msgID, senderID, content    sql.NullString
			msgCreatedAt                sql.NullInt64
		)
		if err := rows.Scan(
			&s.ConversationID, &updatedAt,
			&s.Other.UserID, &handle, &displayName, &avatar, &profileUpdatedAt,
			&msgID, &senderID, &content, &msgCreatedAt,
		); err != nil {
			return nil, storageErr("scan conversation", err)
		}
		s.UpdatedAt = fromMicros(updatedAt)
		s.Other.Handle = handle.String
		s.Other.DisplayName = displayName.String
		s.Other.AvatarURL = avatar.String
		if profileUpdatedAt.Valid {
			s.Other.UpdatedAt = fromMicros(profileUpdatedAt.Int64)
		}
		if msgID.Valid {
			s.LastMessage = &domain.Message{
				ID:             msgID.String,
				ConversationID: s.ConversationID,
				SenderID:       senderID.String,
				Content:        content.String,
				CreatedAt:      fromMicros(msgCreatedAt.Int64),
			}
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate conversations", err)
	}
	return result, nil
}
