package httpserver

import (
	"time"

	"github.com/blackmichael/murmur/internal/domain"
)

type profileJSON struct {
	UserID      string    `json:"userId"`
	Handle      string    `json:"handle,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

type postJSON struct {
	ID             string       `json:"id"`
	AuthorID       string       `json:"authorId,omitempty"`
	Author         *profileJSON `json:"author,omitempty"`
	Content        string       `json:"content"`
	CreatedAt      time.Time    `json:"createdAt"`
	IsAnonymous    bool         `json:"isAnonymous"`
	Privacy        string       `json:"privacy"`
	ContentWarning string       `json:"contentWarning,omitempty"`
	Media          []string     `json:"media,omitempty"`
	Hashtags       []string     `json:"hashtags,omitempty"`
}

type feedResponse struct {
	Cursor string     `json:"cursor,omitempty"`
	Feed   []postJSON `json:"feed"`
}

type bookmarkJSON struct {
	PostID       string    `json:"postId"`
	BookmarkedAt time.Time `json:"bookmarkedAt"`
	Unavailable  bool      `json:"unavailable,omitempty"`
	Post         *postJSON `json:"post,omitempty"`
}

type bookmarksResponse struct {
	Cursor    string         `json:"cursor,omitempty"`
	Bookmarks []bookmarkJSON `json:"bookmarks"`
}

type messageJSON struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

type messagesResponse struct {
	Cursor   string        `json:"cursor,omitempty"`
	Messages []messageJSON `json:"messages"`
}

type conversationJSON struct {
	ConversationID string       `json:"conversationId"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Other          profileJSON  `json:"other"`
	LastMessage    *messageJSON `json:"lastMessage,omitempty"`
}

type createPostRequest struct {
	Content        string   `json:"content"`
	IsAnonymous    bool     `json:"isAnonymous"`
	Privacy        string   `json:"privacy"`
	ContentWarning string   `json:"contentWarning"`
	Media          []string `json:"media"`
	Hashtags       []string `json:"hashtags"`
}

type resolveConversationRequest struct {
	With string `json:"with"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type profileRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

func toProfileJSON(p *domain.Profile) *profileJSON {
	if p == nil {
		return nil
	}
	return &profileJSON{
		UserID:      p.UserID,
		Handle:      p.Handle,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toPostJSON(v *domain.PostView) postJSON {
	return postJSON{
		ID:             v.ID,
		AuthorID:       v.AuthorID,
		Author:         toProfileJSON(v.Author),
		Content:        v.Content,
		CreatedAt:      v.CreatedAt,
		IsAnonymous:    v.IsAnonymous,
		Privacy:        string(v.Privacy),
		ContentWarning: v.ContentWarning,
		Media:          v.Media,
		Hashtags:       v.Hashtags,
	}
}

func toFeedResponse(page *domain.FeedPage) feedResponse {
	resp := feedResponse{Cursor: page.Cursor, Feed: make([]postJSON, len(page.Posts))}
	for i := range page.Posts {
		resp.Feed[i] = toPostJSON(&page.Posts[i])
	}
	return resp
}

func toBookmarksResponse(page *domain.BookmarkPage) bookmarksResponse {
	resp := bookmarksResponse{Cursor: page.Cursor, Bookmarks: make([]bookmarkJSON, len(page.Bookmarks))}
	for i, b := range page.Bookmarks {
		entry := bookmarkJSON{
			PostID:       b.PostID,
			BookmarkedAt: b.BookmarkedAt,
			Unavailable:  b.Unavailable,
		}
		if b.Post != nil {
			p := toPostJSON(b.Post)
			entry.Post = &p
		}
		resp.Bookmarks[i] = entry
	}
	return resp
}

func toMessageJSON(m *domain.Message) messageJSON {
	return messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessagesResponse(page *domain.MessagePage) messagesResponse {
	resp := messagesResponse{Cursor: page.Cursor, Messages: make([]messageJSON, len(page.Messages))}
	for i := range page.Messages {
		resp.Messages[i] = toMessageJSON(&page.Messages[i])
	}
	return resp
}

func toConversationsJSON(summaries []domain.ConversationSummary) []conversationJSON {
	out := make([]conversationJSON, len(summaries))
	for i, s := range summaries {
		c := conversationJSON{
			ConversationID: s.ConversationID,
			UpdatedAt:      s.UpdatedAt,
			Other:          *toProfileJSON(&s.Other),
		}
		if s.LastMessage != nil {
			m := toMessageJSON(s.LastMessage)
			c.LastMessage = &m
		}
		out[i] = c
	}
	return out
}
