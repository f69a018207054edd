package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanView(t *testing.T) {
	tests := []struct {
		name    string
		viewer  string
		privacy Privacy
		follows bool
		want    bool
	}{
		{"public to anonymous", "", PrivacyPublic, false, true},
		{"public to stranger", "carol", PrivacyPublic, false, true},
		{"followers to author", "bob", PrivacyFollowers, false, true},
		{"followers to follower", "alice", PrivacyFollowers, true, true},
		{"followers to stranger", "carol", PrivacyFollowers, false, false},
		{"followers to anonymous claiming follow", "", PrivacyFollowers, true, false},
		{"private to author", "bob", PrivacyPrivate, false, true},
		{"private to follower", "alice", PrivacyPrivate, true, false},
		{"unknown privacy", "bob", Privacy("secret"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &Post{ID: "p", AuthorID: "bob", Privacy: tt.privacy}
			assert.Equal(t, tt.want, CanView(tt.viewer, post, tt.follows))
		})
	}
}

func TestProjectSuppressesAnonymousAuthor(t *testing.T) {
	author := &Profile{UserID: "bob", Handle: "bob"}
	post := &Post{ID: "p", AuthorID: "bob", Content: "x", Media: []string{"a"}}

	v := Project(post, author)
	assert.Equal(t, "bob", v.AuthorID)
	assert.Same(t, author, v.Author)

	post.IsAnonymous = true
	v = Project(post, author)
	assert.Empty(t, v.AuthorID)
	assert.Nil(t, v.Author)
	assert.True(t, v.IsAnonymous)

	v.Media[0] = "changed"
	assert.Equal(t, "a", post.Media[0], "views must not alias stored slices")
}

func TestNormalizeHashtags(t *testing.T) {
	assert.Nil(t, NormalizeHashtags(nil))
	assert.Equal(t, []string{"go", "sql"}, NormalizeHashtags([]string{"#Go", "sql", " go ", "##SQL", "", "#"}))
}

func TestParsePrivacy(t *testing.T) {
	p, err := ParsePrivacy("")
	require.NoError(t, err)
	assert.Equal(t, PrivacyPublic, p)

	p, err = ParsePrivacy(" Followers ")
	require.NoError(t, err)
	assert.Equal(t, PrivacyFollowers, p)

	_, err = ParsePrivacy("friends")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC)
	token := EncodeCursor(at, "0190-abc")

	c, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.True(t, at.Equal(c.At))
	assert.Equal(t, "0190-abc", c.ID)

	c, err = DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{
		"%%%",
		EncodeCursor(time.Now(), "")[:4],
		"bm8tc2VwYXJhdG9y", // "no-separator"
		"eHl6OjppZA",       // "xyz::id"
	} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidArgument, token)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, clampLimit(0))
	assert.Equal(t, DefaultPageSize, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxPageSize, clampLimit(MaxPageSize+1))
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, PairKey("alice", "bob"), PairKey("bob", "alice"))
	assert.NotEqual(t, PairKey("ab", "c"), PairKey("a", "bc"))
	assert.Len(t, PairKey("a", "b"), 64)

	lo, hi := SortPair("zed", "amy")
	assert.Equal(t, "amy", lo)
	assert.Equal(t, "zed", hi)
}

func TestConversationHas(t *testing.T) {
	c := &Conversation{Participants: [2]string{"a", "b"}}
	assert.True(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.False(t, c.Has("c"))
	assert.False(t, c.Has(""))
}
