package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Privacy is the audience a post is published to.
type Privacy string

const (
	PrivacyPublic    Privacy = "public"
	PrivacyFollowers Privacy = "followers"
	PrivacyPrivate   Privacy = "private"
)

// ParsePrivacy validates a privacy level. An empty string means public.
func ParsePrivacy(s string) (Privacy, error) {
	switch p := Privacy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PrivacyPublic, nil
	case PrivacyPublic, PrivacyFollowers, PrivacyPrivate:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown privacy level %q", ErrInvalidArgument, s)
	}
}

// Post is a stored post. It carries the author's identity even when the post
// is anonymous; only Project may turn it into something that leaves the core.
type Post struct {
	// ID is a UUIDv7 assigned at creation.
	ID string

	// AuthorID is the opaque identifier of the author.
	AuthorID string

	// Content is the post body.
	Content string

	// CreatedAt is assigned by the server and never changes.
	CreatedAt time.Time

	// IsAnonymous hides the author from every projection of the post.
	IsAnonymous bool

	// Privacy controls who may see the post.
	Privacy Privacy

	// ContentWarning is shown in place of the content until expanded.
	ContentWarning string

	// Media is the ordered list of media references.
	Media []string

	// Hashtags is the lower-cased, de-duplicated tag set.
	Hashtags []string
}

// NewPost is the author-supplied part of a post.
type NewPost struct {
	// ID, when set, is used instead of a generated one. The ingest relay uses
	// it so that replayed events are idempotent.
	ID             string
	Content        string
	IsAnonymous    bool
	Privacy        string
	ContentWarning string
	Media          []string
	Hashtags       []string
}

// FeedRow is a stored post as seen by one viewer: the author's profile, if
// any, and whether the viewer follows the author.
type FeedRow struct {
	Post          Post
	Author        *Profile
	FollowsAuthor bool
}

// PostView is a post as returned to callers. AuthorID and Author are empty
// for anonymous posts.
type PostView struct {
	ID             string
	AuthorID       string
	Author         *Profile
	Content        string
	CreatedAt      time.Time
	IsAnonymous    bool
	Privacy        Privacy
	ContentWarning string
	Media          []string
	Hashtags       []string
}

// CanView reports whether viewerID may see post. An empty viewerID is an
// unauthenticated viewer.
func CanView(viewerID string, post *Post, viewerFollowsAuthor bool) bool {
	isAuthor := viewerID != "" && viewerID == post.AuthorID
	switch post.Privacy {
	case PrivacyPublic:
		return true
	case PrivacyFollowers:
		return isAuthor || (viewerID != "" && viewerFollowsAuthor)
	case PrivacyPrivate:
		return isAuthor
	default:
		return false
	}
}

// Project converts a stored post into its outward view. It is the only place
// author identity is joined into output, so anonymity is enforced here.
func Project(post *Post, author *Profile) PostView {
	v := PostView{
		ID:             post.ID,
		AuthorID:       post.AuthorID,
		Author:         author,
		Content:        post.Content,
		CreatedAt:      post.CreatedAt,
		IsAnonymous:    post.IsAnonymous,
		Privacy:        post.Privacy,
		ContentWarning: post.ContentWarning,
		Media:          slices.Clone(post.Media),
		Hashtags:       slices.Clone(post.Hashtags),
	}
	if post.IsAnonymous {
		v.AuthorID = ""
		v.Author = nil
	}
	return v
}

// NormalizeHashtags lower-cases tags, strips a leading '#', drops blanks and
// duplicates, and returns them sorted.
func NormalizeHashtags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#")))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
