// Package client is a small Go client for the murmur HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client calls the murmur API as one user.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// token is sent as a bearer credential; userID is sent in the trusted
	// gateway header. At most one is normally set.
	token  string
	userID string
}

// Option configures a Client.
type Option func(*Client)

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithUser sends userID in the X-User-ID header. This only works against a
// server that trusts that header.
func WithUser(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy of c acting as userID via the gateway header.
func (c *Client) As(userID string) *Client {
	cp := *c
	cp.token = ""
	cp.userID = userID
	return &cp
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s: %s", e.Status, e.Code, e.Message)
}

// Profile is a user's public profile.
type Profile struct {
	UserID      string    `json:"userId"`
	Handle      string    `json:"handle,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Post is a post as the viewer sees it. AuthorID is empty for anonymous
// posts.
type Post struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"authorId,omitempty"`
	Author         *Profile  `json:"author,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	IsAnonymous    bool      `json:"isAnonymous"`
	Privacy        string    `json:"privacy"`
	ContentWarning string    `json:"contentWarning,omitempty"`
	Media          []string  `json:"media,omitempty"`
	Hashtags       []string  `json:"hashtags,omitempty"`
}

// NewPost is the body of CreatePost.
type NewPost struct {
	Content        string   `json:"content"`
	IsAnonymous    bool     `json:"isAnonymous,omitempty"`
	Privacy        string   `json:"privacy,omitempty"`
	ContentWarning string   `json:"contentWarning,omitempty"`
	Media          []string `json:"media,omitempty"`
	Hashtags       []string `json:"hashtags,omitempty"`
}

// FeedPage is one page of a feed.
type FeedPage struct {
	Cursor string `json:"cursor,omitempty"`
	Feed   []Post `json:"feed"`
}

// Bookmark is one saved post. Post is nil when Unavailable.
type Bookmark struct {
	PostID       string    `json:"postId"`
	BookmarkedAt time.Time `json:"bookmarkedAt"`
	Unavailable  bool      `json:"unavailable,omitempty"`
	Post         *Post     `json:"post,omitempty"`
}

// BookmarkPage is one page of bookmarks.
type BookmarkPage struct {
	Cursor    string     `json:"cursor,omitempty"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// Message is a direct message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessagePage is one page of a conversation, oldest first.
type MessagePage struct {
	Cursor   string    `json:"cursor,omitempty"`
	Messages []Message `json:"messages"`
}

// Conversation is a conversation directory entry.
type Conversation struct {
	ConversationID string    `json:"conversationId"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Other          Profile   `json:"other"`
	LastMessage    *Message  `json:"lastMessage,omitempty"`
}

// HomeFeed fetches a page of the caller's home feed.
func (c *Client) HomeFeed(ctx context.Context, cursor string, limit int) (*FeedPage, error) {
	var page FeedPage
	if err := c.do(ctx, http.MethodGet, "/v1/feed/home"+pageQuery(cursor, limit, nil), nil, &page); err != nil {
		return nil, fmt.Errorf("home feed: %w", err)
	}
	return &page, nil
}

// DiscoveryFeed fetches a page of the discovery feed, optionally for one tag.
func (c *Client) DiscoveryFeed(ctx context.Context, cursor string, limit int, tag string) (*FeedPage, error) {
	extra := url.Values{}
	if tag != "" {
		extra.Set("tag", tag)
	}
	var page FeedPage
	if err := c.do(ctx, http.MethodGet, "/v1/feed/discovery"+pageQuery(cursor, limit, extra), nil, &page); err != nil {
		return nil, fmt.Errorf("discovery feed: %w", err)
	}
	return &page, nil
}

// CreatePost publishes a post as the caller.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPost, "/v1/posts", p, &post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodGet, "/v1/posts/"+url.PathEscape(postID), nil, &post); err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// DeletePost deletes one of the caller's posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/posts/"+url.PathEscape(postID), nil, nil); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// Follow makes the caller follow userID.
func (c *Client) Follow(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodPut, "/v1/follows/"+url.PathEscape(userID), nil, nil); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

// Unfollow removes the caller's follow of userID.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/follows/"+url.PathEscape(userID), nil, nil); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// IsFollowing reports whether the caller follows userID.
func (c *Client) IsFollowing(ctx context.Context, userID string) (bool, error) {
	var resp struct {
		Following bool `json:"following"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/follows/"+url.PathEscape(userID), nil, &resp); err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return resp.Following, nil
}

// Following lists the accounts userID follows.
func (c *Client) Following(ctx context.Context, userID string) ([]string, error) {
	return c.listUsers(ctx, "/v1/users/"+url.PathEscape(userID)+"/following")
}

// Followers lists the accounts following userID.
func (c *Client) Followers(ctx context.Context, userID string) ([]string, error) {
	return c.listUsers(ctx, "/v1/users/"+url.PathEscape(userID)+"/followers")
}

func (c *Client) listUsers(ctx context.Context, path string) ([]string, error) {
	var resp struct {
		Users []string `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return resp.Users, nil
}

// GetProfile fetches userID's profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/profile", nil, &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile sets the caller's profile.
func (c *Client) UpsertProfile(ctx context.Context, handle, displayName, avatarURL string) (*Profile, error) {
	body := map[string]string{
		"handle":      handle,
		"displayName": displayName,
		"avatarUrl":   avatarURL,
	}
	var p Profile
	if err := c.do(ctx, http.MethodPut, "/v1/profile", body, &p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return &p, nil
}

// ToggleBookmark flips the caller's bookmark on postID.
func (c *Client) ToggleBookmark(ctx context.Context, postID string) (bool, error) {
	var resp struct {
		Bookmarked bool `json:"bookmarked"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/bookmarks/"+url.PathEscape(postID), nil, &resp); err != nil {
		return false, fmt.Errorf("toggle bookmark: %w", err)
	}
	return resp.Bookmarked, nil
}

// ListBookmarks fetches a page of the caller's bookmarks.
func (c *Client) ListBookmarks(ctx context.Context, cursor string, limit int) (*BookmarkPage, error) {
	var page BookmarkPage
	if err := c.do(ctx, http.MethodGet, "/v1/bookmarks"+pageQuery(cursor, limit, nil), nil, &page); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return &page, nil
}

// ResolveConversation returns the id of the caller's conversation with
// userID, creating it if needed.
func (c *Client) ResolveConversation(ctx context.Context, userID string) (string, error) {
	var resp struct {
		ConversationID string `json:"conversationId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", map[string]string{"with": userID}, &resp); err != nil {
		return "", fmt.Errorf("resolve conversation: %w", err)
	}
	return resp.ConversationID, nil
}

// ListConversations fetches the caller's conversation directory.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", nil, &resp); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return resp.Conversations, nil
}

// SendMessage appends a message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*Message, error) {
	var msg Message
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &msg, nil
}

// ListMessages fetches a page of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID, cursor string, limit int) (*MessagePage, error) {
	var page MessagePage
	path := "/v1/conversations/" + url.PathEscape(conversationID) + "/messages" + pageQuery(cursor, limit, nil)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &page, nil
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func pageQuery(cursor string, limit int, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
