// Package ingest imports posts published elsewhere from a websocket relay.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/murmur/internal/domain"
	"github.com/blackmichael/murmur/internal/metrics"
)

const (
	cursorServiceName = "relay"
	reconnectDelay    = 5 * time.Second
	statsInterval     = 30 * time.Second
)

// Subscriber connects to the relay and feeds its events to the FeedService.
type Subscriber struct {
	url            string
	feedService    *domain.FeedService
	cursorInterval time.Duration
	reconnectDelay time.Duration
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// NewSubscriber creates a new relay subscriber. The relay position is saved
// every cursorInterval and when the subscriber stops.
func NewSubscriber(
	relayURL string,
	feedService *domain.FeedService,
	cursorInterval time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Subscriber {
	return &Subscriber{
		url:            relayURL,
		feedService:    feedService,
		cursorInterval: cursorInterval,
		reconnectDelay: reconnectDelay,
		metrics:        m,
		logger:         logger,
	}
}

// Start connects to the relay and processes events until the context is
// cancelled. It reconnects after transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("relay connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.reconnectDelay):
				}
			}
		}
	}
}

func (s *Subscriber) buildURL(cursor int64) (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	if cursor > 0 {
		q := u.Query()
		q.Set("cursor", strconv.FormatInt(cursor, 10))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	cursor, err := s.feedService.GetCursor(ctx, cursorServiceName)
	if err != nil {
		s.logger.Warn("failed to load cursor, starting from live", "error", err)
	}

	wsURL, err := s.buildURL(cursor)
	if err != nil {
		return err
	}
	s.logger.Info("connecting to relay", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()
	// Unblock ReadMessage when the context ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("connected to relay")

	savedCursor := cursor
	latestCursor := cursor
	saveCursor := func(ctx context.Context) {
		if latestCursor <= savedCursor {
			return
		}
		if err := s.feedService.UpdateCursor(ctx, cursorServiceName, latestCursor); err != nil {
			s.logger.Error("failed to save cursor", "error", err)
			return
		}
		savedCursor = latestCursor
	}
	defer func() { saveCursor(context.WithoutCancel(ctx)) }()

	lastCursorSave := time.Now()
	lastStatsLog := time.Now()
	var eventsReceived, postsCreated, postsDeleted int64

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse event", "error", err)
			s.metrics.IngestEvent("unknown", "error")
			continue
		}
		eventsReceived++

		outcome := s.handleEvent(ctx, event)
		s.metrics.IngestEvent(event.Kind, outcome)
		if outcome == "ok" {
			switch event.Kind {
			case kindPostCreate:
				postsCreated++
			case kindPostDelete:
				postsDeleted++
			}
		}
		// Failed events are logged and passed over; the relay does not
		// redeliver them.
		if event.Seq > latestCursor {
			latestCursor = event.Seq
		}

		if time.Since(lastStatsLog) >= statsInterval {
			s.logger.Info("relay stats",
				"events_received", eventsReceived,
				"posts_created", postsCreated,
				"posts_deleted", postsDeleted,
			)
			lastStatsLog = time.Now()
		}

		if time.Since(lastCursorSave) >= s.cursorInterval {
			saveCursor(ctx)
			lastCursorSave = time.Now()
		}
	}
}

// handleEvent applies one event and returns its outcome: "ok", "skipped" or
// "error".
func (s *Subscriber) handleEvent(ctx context.Context, event *relayEvent) string {
	if event.Post == nil || event.Post.ID == "" {
		if event.Kind == kindPostCreate || event.Kind == kindPostDelete {
			s.logger.Warn("relay event without post id", "seq", event.Seq, "kind", event.Kind)
		}
		return "skipped"
	}
	post := event.Post

	var err error
	switch event.Kind {
	case kindPostCreate:
		_, err = s.feedService.CreatePost(ctx, post.AuthorID, domain.NewPost{
			ID:             post.ID,
			Content:        post.Content,
			IsAnonymous:    post.IsAnonymous,
			Privacy:        post.Privacy,
			ContentWarning: post.ContentWarning,
			Media:          post.Media,
			Hashtags:       post.Hashtags,
		})
	case kindPostDelete:
		err = s.feedService.DeletePost(ctx, post.AuthorID, post.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return "skipped"
		}
	default:
		return "skipped"
	}

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnauthorized):
		s.logger.Warn("rejected relay event", "seq", event.Seq, "kind", event.Kind, "post", post.ID, "error", err)
		return "skipped"
	default:
		s.logger.Error("failed to apply relay event", "seq", event.Seq, "kind", event.Kind, "post", post.ID, "error", err)
		return "error"
	}
}
