package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackmichael/murmur/internal/metrics"
)

// MessagingService resolves 1:1 conversations, appends messages and serves
// the conversation directory. It keeps no state of its own; the repository
// is the source of truth.
type MessagingService struct {
	repo    ConversationRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewMessagingService(repo ConversationRepository, m *metrics.Metrics, logger *slog.Logger) *MessagingService {
	return &MessagingService{
		repo:    repo,
		metrics: m,
		logger:  logger,
	}
}

// ResolveOrCreate returns the id of the single conversation between userA and
// userB, creating it if needed. The result does not depend on argument order.
//
// Two callers racing to create the same pair both miss the lookup; the
// repository's unique pair key lets exactly one insert win and the loser
// retries the lookup once.
func (s *MessagingService) ResolveOrCreate(ctx context.Context, userA, userB string) (string, error) {
	if userA == "" {
		return "", ErrUnauthorized
	}
	if userB == "" {
		return "", fmt.Errorf("%w: other participant is required", ErrInvalidArgument)
	}
	if userA == userB {
		return "", fmt.Errorf("%w: cannot start a conversation with yourself", ErrInvalidArgument)
	}

	key := PairKey(userA, userB)
	id, err := s.repo.FindConversationByPair(ctx, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("find conversation: %w", err)
	}

	v7, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate conversation id: %w", err)
	}
	lo, hi := SortPair(userA, userB)
	now := time.Now().UTC().Truncate(time.Microsecond)
	conv := &Conversation{
		ID:           v7.String(),
		PairKey:      key,
		Participants: [2]string{lo, hi},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.CreateConversation(ctx, conv)
	switch {
	case err == nil:
		s.metrics.ConversationCreated()
		s.logger.Info("conversation created", "conversation", conv.ID)
		return conv.ID, nil
	case errors.Is(err, ErrConflict):
		s.metrics.ConversationConflict()
		s.logger.Debug("conversation created concurrently, retrying lookup", "pair_key", key)
		id, err := s.repo.FindConversationByPair(ctx, key)
		if err != nil {
			return "", fmt.Errorf("find conversation after conflict: %w", err)
		}
		return id, nil
	default:
		return "", fmt.Errorf("create conversation: %w", err)
	}
}

// SendMessage appends a message from senderID. Every call appends a new
// message; callers must not resend on an ambiguous timeout.
func (s *MessagingService) SendMessage(ctx context.Context, conversationID, senderID, content string) (*Message, error) {
	if senderID == "" {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidArgument)
	}

	v7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	msg := &Message{
		ID:             v7.String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message to %s: %w", conversationID, err)
	}
	s.metrics.MessageSent()
	return msg, nil
}

// ListMessages returns a page of the conversation, oldest first.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID, viewerID, cursor string, limit int) (*MessagePage, error) {
	if viewerID == "" {
		return nil, ErrUnauthorized
	}
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if !conv.Has(viewerID) {
		return nil, fmt.Errorf("list messages in %s: %w", conversationID, ErrNotAParticipant)
	}

	msgs, err := s.repo.ListMessages(ctx, conversationID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &MessagePage{Messages: msgs}
	if len(msgs) > limit {
		page.Messages = msgs[:limit]
		last := page.Messages[limit-1]
		page.Cursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	if page.Messages == nil {
		page.Messages = []Message{}
	}
	return page, nil
}

// ListConversations returns userID's conversations, most recently active
// first, each with the other participant and the latest message. It reads
// storage directly so a just-sent message is always reflected.
func (s *MessagingService) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	summaries, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if summaries == nil {
		summaries = []ConversationSummary{}
	}
	return summaries, nil
}
