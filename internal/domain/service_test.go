package domain_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/murmur/internal/domain"
	"github.com/blackmichael/murmur/internal/metrics"
	"github.com/blackmichael/murmur/internal/store"
)

type services struct {
	repo      *store.Repository
	feed      *domain.FeedService
	graph     *domain.GraphService
	bookmarks *domain.BookmarkService
	messaging *domain.MessagingService
	profiles  *domain.ProfileService
	metrics   *metrics.Metrics
}

func newServices(t *testing.T) *services {
	t.Helper()
	ctx := context.Background()
	repo, err := store.Open(ctx, store.DriverSQLite, store.SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Migrate(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	return &services{
		repo:      repo,
		feed:      domain.NewFeedService(repo, repo, m, logger),
		graph:     domain.NewGraphService(repo, logger),
		bookmarks: domain.NewBookmarkService(repo, repo, m, logger),
		messaging: domain.NewMessagingService(repo, m, logger),
		profiles:  domain.NewProfileService(repo),
		metrics:   m,
	}
}

func (s *services) post(t *testing.T, author, content, privacy string) *domain.PostView {
	t.Helper()
	p, err := s.feed.CreatePost(context.Background(), author, domain.NewPost{Content: content, Privacy: privacy})
	require.NoError(t, err)
	return p
}

// allPosts walks every page of a feed and returns the post ids in order.
func allPosts(t *testing.T, fetch func(cursor string) (*domain.FeedPage, error)) []string {
	t.Helper()
	var ids []string
	cursor := ""
	for i := 0; i < 1000; i++ {
		page, err := fetch(cursor)
		require.NoError(t, err)
		for _, p := range page.Posts {
			ids = append(ids, p.ID)
		}
		if page.Cursor == "" {
			return ids
		}
		cursor = page.Cursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func homeIDs(t *testing.T, s *services, viewer string) []string {
	return allPosts(t, func(cursor string) (*domain.FeedPage, error) {
		return s.feed.HomeFeed(context.Background(), viewer, cursor, 10)
	})
}

func discoveryIDs(t *testing.T, s *services, viewer string) []string {
	return allPosts(t, func(cursor string) (*domain.FeedPage, error) {
		return s.feed.DiscoveryFeed(context.Background(), viewer, cursor, 10, "")
	})
}

func TestPrivatePostsOnlyInAuthorsHomeFeed(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	require.NoError(t, s.graph.Follow(ctx, "alice", "bob"))
	require.NoError(t, s.graph.Follow(ctx, "carol", "bob"))

	secret := s.post(t, "bob", "secret", "private")
	s.post(t, "bob", "hello", "public")

	assert.Contains(t, homeIDs(t, s, "bob"), secret.ID)
	for _, viewer := range []string{"alice", "carol", "dave"} {
		assert.NotContains(t, homeIDs(t, s, viewer), secret.ID, viewer)
		assert.NotContains(t, discoveryIDs(t, s, viewer), secret.ID, viewer)
	}
	assert.NotContains(t, discoveryIDs(t, s, ""), secret.ID)
	assert.NotContains(t, discoveryIDs(t, s, "bob"), secret.ID)

	_, err := s.feed.GetPost(ctx, "alice", secret.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFollowersPostsFollowTheGraph(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	require.NoError(t, s.graph.Follow(ctx, "alice", "bob"))

	p := s.post(t, "bob", "friends only", "followers")

	assert.Contains(t, homeIDs(t, s, "alice"), p.ID)
	assert.Contains(t, homeIDs(t, s, "bob"), p.ID)
	assert.NotContains(t, homeIDs(t, s, "carol"), p.ID)

	require.NoError(t, s.graph.Unfollow(ctx, "alice", "bob"))
	assert.NotContains(t, homeIDs(t, s, "alice"), p.ID)
}

func TestHomeAndDiscoveryAreDisjoint(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	require.NoError(t, s.graph.Follow(ctx, "alice", "bob"))

	s.post(t, "alice", "mine", "public")
	s.post(t, "bob", "followed", "public")
	s.post(t, "bob", "followed friends", "followers")
	s.post(t, "carol", "stranger", "public")
	s.post(t, "carol", "stranger friends", "followers")
	s.post(t, "dave", "stranger private", "private")

	home := homeIDs(t, s, "alice")
	disc := discoveryIDs(t, s, "alice")
	assert.Len(t, home, 3)
	assert.Len(t, disc, 1)
	for _, id := range disc {
		assert.NotContains(t, home, id)
	}
}

func TestPaginationReturnsEveryPostOnce(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	const n, k = 23, 5
	for i := 0; i < n; i++ {
		s.post(t, "alice", fmt.Sprintf("post %d", i), "public")
	}

	seen := map[string]bool{}
	var prev *domain.PostView
	pages := 0
	cursor := ""
	for {
		page, err := s.feed.HomeFeed(ctx, "alice", cursor, k)
		require.NoError(t, err)
		pages++
		for i := range page.Posts {
			p := &page.Posts[i]
			require.False(t, seen[p.ID], "post %s returned twice", p.ID)
			seen[p.ID] = true
			if prev != nil {
				descending := p.CreatedAt.Before(prev.CreatedAt) ||
					(p.CreatedAt.Equal(prev.CreatedAt) && p.ID < prev.ID)
				assert.True(t, descending, "posts out of order")
			}
			prev = p
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Len(t, seen, n)
	assert.Equal(t, (n+k-1)/k, pages)
}

func TestUnauthenticatedHomeFeedIsEmpty(t *testing.T) {
	s := newServices(t)
	s.post(t, "alice", "hello", "public")

	page, err := s.feed.HomeFeed(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.Empty(t, page.Cursor)

	disc, err := s.feed.DiscoveryFeed(context.Background(), "", "", 0, "")
	require.NoError(t, err)
	assert.Len(t, disc.Posts, 1)
}

func TestAnonymousPostsHideAuthorEverywhere(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	_, err := s.profiles.UpsertProfile(ctx, "bob", domain.ProfileInput{Handle: "bob"})
	require.NoError(t, err)

	p, err := s.feed.CreatePost(ctx, "bob", domain.NewPost{Content: "psst", IsAnonymous: true})
	require.NoError(t, err)
	assert.Empty(t, p.AuthorID)

	check := func(v domain.PostView) {
		assert.True(t, v.IsAnonymous)
		assert.Empty(t, v.AuthorID)
		assert.Nil(t, v.Author)
	}

	home, err := s.feed.HomeFeed(ctx, "bob", "", 0)
	require.NoError(t, err)
	require.Len(t, home.Posts, 1)
	check(home.Posts[0])

	disc, err := s.feed.DiscoveryFeed(ctx, "carol", "", 0, "")
	require.NoError(t, err)
	require.Len(t, disc.Posts, 1)
	check(disc.Posts[0])

	on, err := s.bookmarks.ToggleBookmark(ctx, "carol", p.ID)
	require.NoError(t, err)
	require.True(t, on)
	marks, err := s.bookmarks.ListBookmarks(ctx, "carol", "", 0)
	require.NoError(t, err)
	require.Len(t, marks.Bookmarks, 1)
	require.NotNil(t, marks.Bookmarks[0].Post)
	check(*marks.Bookmarks[0].Post)
}

func TestCreatePostValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	_, err := s.feed.CreatePost(ctx, "", domain.NewPost{Content: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = s.feed.CreatePost(ctx, "alice", domain.NewPost{Content: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = s.feed.CreatePost(ctx, "alice", domain.NewPost{Content: "x", Privacy: "circle"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	err = s.feed.DeletePost(ctx, "mallory", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFollowValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.graph.Follow(ctx, "alice", "alice"), domain.ErrInvalidArgument)
	assert.ErrorIs(t, s.graph.Follow(ctx, "", "bob"), domain.ErrUnauthorized)

	// Idempotent in both directions.
	require.NoError(t, s.graph.Follow(ctx, "alice", "bob"))
	require.NoError(t, s.graph.Follow(ctx, "alice", "bob"))
	following, err := s.graph.Following(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, following)
	followers, err := s.graph.Followers(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, followers)

	require.NoError(t, s.graph.Unfollow(ctx, "alice", "bob"))
	require.NoError(t, s.graph.Unfollow(ctx, "alice", "bob"))
	ok, err := s.graph.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToggleBookmarkTwiceRestoresState(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	p := s.post(t, "bob", "good post", "public")

	before, err := s.bookmarks.ListBookmarks(ctx, "alice", "", 0)
	require.NoError(t, err)

	on, err := s.bookmarks.ToggleBookmark(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := s.bookmarks.ToggleBookmark(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.False(t, off)

	after, err := s.bookmarks.ListBookmarks(ctx, "alice", "", 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBookmarksFlagPostsThatBecameUnavailable(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	require.NoError(t, s.graph.Follow(ctx, "alice", "bob"))

	friends := s.post(t, "bob", "friends only", "followers")
	deleted := s.post(t, "bob", "soon gone", "public")
	kept := s.post(t, "bob", "still here", "public")

	for _, id := range []string{friends.ID, deleted.ID, kept.ID} {
		on, err := s.bookmarks.ToggleBookmark(ctx, "alice", id)
		require.NoError(t, err)
		require.True(t, on)
	}

	require.NoError(t, s.graph.Unfollow(ctx, "alice", "bob"))
	require.NoError(t, s.feed.DeletePost(ctx, "bob", deleted.ID))

	page, err := s.bookmarks.ListBookmarks(ctx, "alice", "", 0)
	require.NoError(t, err)
	require.Len(t, page.Bookmarks, 3)

	byID := map[string]domain.BookmarkEntry{}
	for _, b := range page.Bookmarks {
		byID[b.PostID] = b
	}
	assert.True(t, byID[friends.ID].Unavailable)
	assert.Nil(t, byID[friends.ID].Post)
	assert.True(t, byID[deleted.ID].Unavailable)
	assert.False(t, byID[kept.ID].Unavailable)
	require.NotNil(t, byID[kept.ID].Post)
	assert.Equal(t, "still here", byID[kept.ID].Post.Content)

	// An unavailable bookmark can still be cleared, but not re-added.
	off, err := s.bookmarks.ToggleBookmark(ctx, "alice", friends.ID)
	require.NoError(t, err)
	assert.False(t, off)
	_, err = s.bookmarks.ToggleBookmark(ctx, "alice", friends.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookmarkPagination(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		p := s.post(t, "bob", fmt.Sprintf("p%d", i), "public")
		_, err := s.bookmarks.ToggleBookmark(ctx, "alice", p.ID)
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := s.bookmarks.ListBookmarks(ctx, "alice", cursor, 3)
		require.NoError(t, err)
		for _, b := range page.Bookmarks {
			assert.False(t, seen[b.PostID])
			seen[b.PostID] = true
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Len(t, seen, 7)
}

func TestResolveOrCreateIsSymmetricAndStable(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	ab, err := s.messaging.ResolveOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	ba, err := s.messaging.ResolveOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)
	again, err := s.messaging.ResolveOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Equal(t, ab, again)

	other, err := s.messaging.ResolveOrCreate(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.NotEqual(t, ab, other)

	_, err = s.messaging.ResolveOrCreate(ctx, "alice", "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = s.messaging.ResolveOrCreate(ctx, "", "alice")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// SQLite serializes these callers on its single connection, so this checks
// that concurrent resolution is stable. The conflict retry itself is covered
// by TestResolveOrCreateRetriesLookupOnConflict.
func TestResolveOrCreateStableUnderConcurrentCallers(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			ids[i], errs[i] = s.messaging.ResolveOrCreate(ctx, a, b)
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	convs, err := s.messaging.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "bob", convs[0].Other.UserID)

	conv, err := s.repo.GetConversation(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, [2]string{"alice", "bob"}, conv.Participants)
}

// racingRepo makes the first lookup miss even though another caller has
// already created the conversation, which forces the conflict path.
type racingRepo struct {
	*store.Repository
	misses int
}

func (r *racingRepo) FindConversationByPair(ctx context.Context, key string) (string, error) {
	if r.misses > 0 {
		r.misses--
		return "", domain.ErrNotFound
	}
	return r.Repository.FindConversationByPair(ctx, key)
}

func TestResolveOrCreateRetriesLookupOnConflict(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	winner, err := s.messaging.ResolveOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	repo := &racingRepo{Repository: s.repo, misses: 1}
	loser := domain.NewMessagingService(repo, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	id, err := loser.ResolveOrCreate(ctx, "bob", "alice")
	require.NoError(t, err, "the conflict must be absorbed")
	assert.False(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, winner, id)
}

func TestMessagingFlow(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	id, err := s.messaging.ResolveOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.messaging.SendMessage(ctx, id, "alice", text)
		require.NoError(t, err)
	}

	page, err := s.messaging.ListMessages(ctx, id, "bob", "", 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	for i, want := range []string{"one", "two", "three"} {
		assert.Equal(t, want, page.Messages[i].Content)
	}
	assert.Empty(t, page.Cursor)

	_, err = s.messaging.SendMessage(ctx, id, "mallory", "let me in")
	assert.ErrorIs(t, err, domain.ErrNotAParticipant)
	_, err = s.messaging.ListMessages(ctx, id, "mallory", "", 0)
	assert.ErrorIs(t, err, domain.ErrNotAParticipant)
	_, err = s.messaging.SendMessage(ctx, id, "alice", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = s.messaging.SendMessage(ctx, "missing", "alice", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.messaging.ListMessages(ctx, "missing", "alice", "", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMessagePagination(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	id, err := s.messaging.ResolveOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.messaging.SendMessage(ctx, id, "bob", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	var got []string
	cursor := ""
	for {
		page, err := s.messaging.ListMessages(ctx, id, "alice", cursor, 2)
		require.NoError(t, err)
		for _, m := range page.Messages {
			got = append(got, m.Content)
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, got)
}

func TestExampleScenario(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	_, err := s.profiles.UpsertProfile(ctx, "B", domain.ProfileInput{Handle: "b", DisplayName: "User B"})
	require.NoError(t, err)

	require.NoError(t, s.graph.Follow(ctx, "A", "B"))
	hi := s.post(t, "B", "hi", "followers")

	assert.Contains(t, homeIDs(t, s, "A"), hi.ID)
	assert.NotContains(t, discoveryIDs(t, s, "C"), hi.ID)

	convA, err := s.messaging.ResolveOrCreate(ctx, "A", "B")
	require.NoError(t, err)
	first, err := s.messaging.SendMessage(ctx, convA, "A", "hey B")
	require.NoError(t, err)

	before, err := s.repo.GetConversation(ctx, convA)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"A", "B"}, before.Participants)

	convB, err := s.messaging.ResolveOrCreate(ctx, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, convA, convB)
	reply, err := s.messaging.SendMessage(ctx, convB, "B", "hey A")
	require.NoError(t, err)
	assert.True(t, reply.CreatedAt.After(first.CreatedAt))

	after, err := s.repo.GetConversation(ctx, convA)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, reply.CreatedAt, after.UpdatedAt)

	convs, err := s.messaging.ListConversations(ctx, "A")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "B", convs[0].Other.UserID)
	assert.Equal(t, "User B", convs[0].Other.DisplayName)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, reply.ID, convs[0].LastMessage.ID)
	assert.Equal(t, "hey A", convs[0].LastMessage.Content)
}

func TestPruneJobRemovesDanglingBookmarks(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	p := s.post(t, "bob", "ephemeral", "public")
	_, err := s.bookmarks.ToggleBookmark(ctx, "alice", p.ID)
	require.NoError(t, err)
	require.NoError(t, s.feed.DeletePost(ctx, "bob", p.ID))

	jobCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		s.bookmarks.StartPruneJob(jobCtx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		page, err := s.bookmarks.ListBookmarks(ctx, "alice", "", 0)
		return err == nil && len(page.Bookmarks) == 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestCreatePostReplayReturnsStoredPost(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	created, err := s.feed.CreatePost(ctx, "alice", domain.NewPost{ID: "x1", Content: "mine", Privacy: "private"})
	require.NoError(t, err)

	replayed, err := s.feed.CreatePost(ctx, "alice", domain.NewPost{ID: "x1", Content: "edited", Privacy: "public"})
	require.NoError(t, err)
	assert.Equal(t, "mine", replayed.Content)
	assert.Equal(t, domain.PrivacyPrivate, replayed.Privacy)
	assert.True(t, created.CreatedAt.Equal(replayed.CreatedAt))

	_, err = s.feed.CreatePost(ctx, "mallory", domain.NewPost{ID: "x1", Content: "forged", Privacy: "public"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	stored, err := s.feed.GetPost(ctx, "alice", "x1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.AuthorID)
	assert.Equal(t, "mine", stored.Content)

	_, err = s.feed.GetPost(ctx, "mallory", "x1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	expected := `
# HELP murmur_posts_created_total Posts created.
# TYPE murmur_posts_created_total counter
murmur_posts_created_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(s.metrics.Registry(), strings.NewReader(expected), "murmur_posts_created_total"))
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	ad, err := s.messaging.ResolveOrCreate(ctx, "a", "d")
	require.NoError(t, err)
	ab, err := s.messaging.ResolveOrCreate(ctx, "a", "b")
	require.NoError(t, err)
	ac, err := s.messaging.ResolveOrCreate(ctx, "a", "c")
	require.NoError(t, err)

	conversationIDs := func() []string {
		convs, err := s.messaging.ListConversations(ctx, "a")
		require.NoError(t, err)
		ids := make([]string, len(convs))
		for i, c := range convs {
			ids[i] = c.ConversationID
		}
		return ids
	}

	_, err = s.messaging.SendMessage(ctx, ab, "a", "to b")
	require.NoError(t, err)
	_, err = s.messaging.SendMessage(ctx, ac, "c", "to a")
	require.NoError(t, err)
	assert.Equal(t, []string{ac, ab, ad}, conversationIDs())

	latest, err := s.messaging.SendMessage(ctx, ab, "b", "again")
	require.NoError(t, err)
	assert.Equal(t, []string{ab, ac, ad}, conversationIDs())

	convs, err := s.messaging.ListConversations(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 3)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, latest.ID, convs[0].LastMessage.ID)
	assert.Equal(t, "again", convs[0].LastMessage.Content)
	assert.Equal(t, "d", convs[2].Other.UserID)
	assert.Nil(t, convs[2].LastMessage)
}
