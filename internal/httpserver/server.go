package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/blackmichael/murmur/internal/config"
	"github.com/blackmichael/murmur/internal/domain"
	"github.com/blackmichael/murmur/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Services bundles the domain services the HTTP API exposes.
type Services struct {
	Feed      *domain.FeedService
	Graph     *domain.GraphService
	Bookmarks *domain.BookmarkService
	Messaging *domain.MessagingService
	Profiles  *domain.ProfileService

	// Health, if set, is checked by GET /health.
	Health interface {
		Ping(ctx context.Context) error
	}
}

// Server is the HTTP server for the murmur API.
type Server struct {
	svc        Services
	ident      *identifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a new HTTP server over the given services.
func NewServer(cfg *config.Config, svc Services, m *metrics.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		ident:   newIdentifier(cfg.Auth),
		metrics: m,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	mux.HandleFunc("GET /v1/feed/home", s.withViewer(s.handleHomeFeed))
	mux.HandleFunc("GET /v1/feed/discovery", s.withViewer(s.handleDiscoveryFeed))

	mux.HandleFunc("POST /v1/posts", s.withViewer(s.handleCreatePost))
	mux.HandleFunc("GET /v1/posts/{id}", s.withViewer(s.handleGetPost))
	mux.HandleFunc("DELETE /v1/posts/{id}", s.withViewer(s.handleDeletePost))

	mux.HandleFunc("GET /v1/follows/{userID}", s.withViewer(s.handleIsFollowing))
	mux.HandleFunc("PUT /v1/follows/{userID}", s.withViewer(s.handleFollow))
	mux.HandleFunc("DELETE /v1/follows/{userID}", s.withViewer(s.handleUnfollow))
	mux.HandleFunc("GET /v1/users/{userID}/following", s.handleListFollowing)
	mux.HandleFunc("GET /v1/users/{userID}/followers", s.handleListFollowers)
	mux.HandleFunc("GET /v1/users/{userID}/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /v1/profile", s.withViewer(s.handleUpsertProfile))

	mux.HandleFunc("POST /v1/bookmarks/{postID}", s.withViewer(s.handleToggleBookmark))
	mux.HandleFunc("GET /v1/bookmarks", s.withViewer(s.handleListBookmarks))

	mux.HandleFunc("POST /v1/conversations", s.withViewer(s.handleResolveConversation))
	mux.HandleFunc("GET /v1/conversations", s.withViewer(s.handleListConversations))
	mux.HandleFunc("POST /v1/conversations/{id}/messages", s.withViewer(s.handleSendMessage))
	mux.HandleFunc("GET /v1/conversations/{id}/messages", s.withViewer(s.handleListMessages))

	s.handler = withLogging(logger, m, mux)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type viewerHandler func(w http.ResponseWriter, r *http.Request, viewerID string)

// withViewer resolves the acting user before calling h. Anonymous requests
// get viewerID ""; the services decide whether that is acceptable.
func (s *Server) withViewer(h viewerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, err := s.ident.identify(r)
		if err != nil {
			s.logger.Warn("rejected credentials", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		h(w, r, viewerID)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHomeFeed(w http.ResponseWriter, r *http.Request, viewerID string) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	page, err := s.svc.Feed.HomeFeed(r.Context(), viewerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedResponse(page))
}

func (s *Server) handleDiscoveryFeed(w http.ResponseWriter, r *http.Request, viewerID string) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := s.svc.Feed.DiscoveryFeed(r.Context(), viewerID, q.Get("cursor"), limit, q.Get("tag"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFeedResponse(page))
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, viewerID string) {
	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	post, err := s.svc.Feed.CreatePost(r.Context(), viewerID, domain.NewPost{
		Content:        req.Content,
		IsAnonymous:    req.IsAnonymous,
		Privacy:        req.Privacy,
		ContentWarning: req.ContentWarning,
		Media:          req.Media,
		Hashtags:       req.Hashtags,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostJSON(post))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, viewerID string) {
	post, err := s.svc.Feed.GetPost(r.Context(), viewerID, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostJSON(post))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, viewerID string) {
	if err := s.svc.Feed.DeletePost(r.Context(), viewerID, r.PathValue("id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIsFollowing(w http.ResponseWriter, r *http.Request, viewerID string) {
	following, err := s.svc.Graph.IsFollowing(r.Context(), viewerID, r.PathValue("userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": following})
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request, viewerID string) {
	if err := s.svc.Graph.Follow(r.Context(), viewerID, r.PathValue("userID")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request, viewerID string) {
	if err := s.svc.Graph.Unfollow(r.Context(), viewerID, r.PathValue("userID")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFollowing(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Graph.Following(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"users": nonNil(ids)})
}

func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.Graph.Followers(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"users": nonNil(ids)})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profiles.GetProfile(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileJSON(p))
}

func (s *Server) handleUpsertProfile(w http.ResponseWriter, r *http.Request, viewerID string) {
	var req profileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := s.svc.Profiles.UpsertProfile(r.Context(), viewerID, domain.ProfileInput{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileJSON(p))
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request, viewerID string) {
	bookmarked, err := s.svc.Bookmarks.ToggleBookmark(r.Context(), viewerID, r.PathValue("postID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request, viewerID string) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	page, err := s.svc.Bookmarks.ListBookmarks(r.Context(), viewerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookmarksResponse(page))
}

func (s *Server) handleResolveConversation(w http.ResponseWriter, r *http.Request, viewerID string) {
	var req resolveConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := s.svc.Messaging.ResolveOrCreate(r.Context(), viewerID, req.With)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conversationId": id})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, viewerID string) {
	summaries, err := s.svc.Messaging.ListConversations(r.Context(), viewerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": toConversationsJSON(summaries)})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, viewerID string) {
	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := s.svc.Messaging.SendMessage(r.Context(), r.PathValue("id"), viewerID, req.Content)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageJSON(msg))
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request, viewerID string) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	page, err := s.svc.Messaging.ListMessages(r.Context(), r.PathValue("id"), viewerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessagesResponse(page))
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Storage failures are logged and reported without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, domain.ErrNotAParticipant):
		writeError(w, http.StatusForbidden, "NotAParticipant", "not a participant in this conversation")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFound", "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
	}
}

// parseLimit reads the optional limit parameter. Zero means the default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(l)
	if err != nil || parsed < 1 || parsed > domain.MaxPageSize {
		writeError(w, http.StatusBadRequest, "InvalidRequest",
			fmt.Sprintf("limit must be between 1 and %d", domain.MaxPageSize))
		return 0, false
	}
	return parsed, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed JSON body")
		return false
	}
	return true
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

// withLogging logs every request and records it in the metrics under the
// matched route pattern.
func withLogging(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		elapsed := time.Since(start)
		// ServeMux sets r.Pattern on the request it was handed.
		m.ObserveRequest(r.Method, r.Pattern, wrapped.status, elapsed)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", wrapped.status,
			"duration", elapsed,
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
