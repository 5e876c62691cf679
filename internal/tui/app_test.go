package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/perchapp/perch/internal/bridge"
	"github.com/perchapp/perch/internal/config"
	"github.com/perchapp/perch/internal/feed"
	"github.com/perchapp/perch/internal/store"
)

func testAuthors() []store.Author {
	return []store.Author{
		{DID: "did:plc:bob", Handle: "bob.example", DisplayName: "Bob"},
		{DID: "did:plc:eve", Handle: "eve.example"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Config{}
	cfg.Bluesky.Service = "https://bsky.social"
	deps := Deps{Transport: bridge.NewDispatcher(nil, bridge.NewMock())}
	return New(context.Background(), cfg, deps, nil)
}

func newTestAppWithStore(t *testing.T) (*App, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, store.RunMigrations(path))
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.Config{}
	deps := Deps{Transport: bridge.NewDispatcher(nil, bridge.NewMock()), Store: s}
	return New(context.Background(), cfg, deps, nil), s
}

// drain executes a command tree so its side effects land, discarding
// the resulting messages.
func drain(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drain(c)
		}
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, a *App, msg tea.Msg) (*App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	app, ok := model.(*App)
	require.True(t, ok)
	return app, cmd
}

func samplePosts() []feed.Post {
	return []feed.Post{
		{
			ID:         "at://did:plc:bob/app.bsky.feed.post/1",
			Author:     feed.Author{DID: "did:plc:bob", Handle: "bob.example", DisplayName: "Bob"},
			Text:       "first",
			CreatedAt:  "2024-06-01T10:00:00Z",
			LikesCount: 3,
		},
		{
			ID:     "at://did:plc:eve/app.bsky.feed.post/2",
			Author: feed.Author{DID: "did:plc:eve", Handle: "eve.example"},
			Text:   "second",
		},
	}
}

func TestStartsAtLoginWithoutSession(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	require.Equal(t, viewLogin, a.state)
}

func TestStartsAtTimelineWithRestoredSession(t *testing.T) {
	t.Parallel()
	cfg := config.Config{}
	deps := Deps{Transport: bridge.NewDispatcher(nil, bridge.NewMock())}
	a := New(context.Background(), cfg, deps, &feed.Session{AccessJwt: "jwt"})
	require.Equal(t, viewTimeline, a.state)
	require.Equal(t, "jwt", a.token)
}

func TestLoginFailureStaysOnLogin(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	a, _ = update(t, a, loginDoneMsg{err: errors.New("bad credentials")})
	require.Equal(t, viewLogin, a.state)
	require.Contains(t, a.status, "login failed")
}

func TestLoginSuccessSwitchesToTimeline(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)

	a, cmd := update(t, a, loginDoneMsg{token: bridge.MockSessionToken})
	require.Equal(t, viewTimeline, a.state)
	require.Equal(t, bridge.MockSessionToken, a.token)
	require.NotNil(t, cmd) // kicks off the first fetch
}

func TestStaleTimelineFetchIgnored(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.fetchGen = 2

	a, _ = update(t, a, timelineMsg{gen: 1, posts: samplePosts()})
	require.Empty(t, a.posts)

	a, _ = update(t, a, timelineMsg{gen: 2, posts: samplePosts()})
	require.Len(t, a.posts, 2)
	require.False(t, a.loading)
}

func TestCachedTimelineOnlyFillsEmptyFeed(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline

	a, _ = update(t, a, cachedTimelineMsg(samplePosts()))
	require.Len(t, a.posts, 2)
	require.True(t, a.fromCache)

	fresh := samplePosts()[:1]
	a.fetchGen = 1
	a, _ = update(t, a, timelineMsg{gen: 1, posts: fresh})
	require.Len(t, a.posts, 1)
	require.False(t, a.fromCache)

	// cache arriving after a fetch must not clobber fresh posts
	a, _ = update(t, a, cachedTimelineMsg(samplePosts()))
	require.Len(t, a.posts, 1)
}

func TestOptimisticLikeAndRollback(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.posts = samplePosts()

	a, cmd := update(t, a, keyRunes("l"))
	require.NotNil(t, cmd)
	require.True(t, a.liked[a.posts[0].ID])
	require.Equal(t, 4, a.posts[0].LikesCount)

	a, _ = update(t, a, likeDoneMsg{uri: a.posts[0].ID, err: errors.New("boom")})
	require.False(t, a.liked[a.posts[0].ID])
	require.Equal(t, 3, a.posts[0].LikesCount)
	require.Contains(t, a.status, "like failed")
}

func TestUnlikeIsLocalOnly(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.posts = samplePosts()

	a, cmd := update(t, a, keyRunes("l"))
	require.NotNil(t, cmd)
	require.Equal(t, 4, a.posts[0].LikesCount)

	a, cmd = update(t, a, keyRunes("l"))
	require.Nil(t, cmd)
	require.Equal(t, 3, a.posts[0].LikesCount)
	require.False(t, a.liked[a.posts[0].ID])
}

func TestLikeCountNeverNegative(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.posts = samplePosts()
	a.cursor = 1 // second post has zero likes

	a, _ = update(t, a, keyRunes("l"))
	require.Equal(t, 1, a.posts[1].LikesCount)
	a, _ = update(t, a, likeDoneMsg{uri: a.posts[1].ID, err: errors.New("boom")})
	require.Equal(t, 0, a.posts[1].LikesCount)
}

func TestDetailViewRoundTrip(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.posts = samplePosts()

	detail := samplePosts()[0]
	replies := []feed.Reply{
		{Post: feed.Post{ID: "at://r1", Author: feed.Author{Handle: "alice.example"}, Text: "mine"}, IsOwn: true},
	}
	a, _ = update(t, a, detailMsg{post: detail, replies: replies})
	require.Equal(t, viewDetail, a.state)
	require.Equal(t, detail.ID, a.detail.ID)
	require.Len(t, a.replies, 1)

	view := a.View()
	require.Contains(t, view, "mine")
	require.Contains(t, view, "(you)")

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, viewTimeline, a.state)
}

func TestComposeModalFlow(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline

	a, _ = update(t, a, keyRunes("c"))
	require.Equal(t, modalCompose, a.modal)

	// empty buffer cannot be posted
	a, cmd := update(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Nil(t, cmd)
	require.Equal(t, "nothing to post", a.status)

	a, _ = update(t, a, keyRunes("hi"))
	a, cmd = update(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	require.Equal(t, modalNone, a.modal)

	msg := cmd()
	done, ok := msg.(postDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	require.Equal(t, bridge.MockPostID, done.id)
}

func TestDraftSaveAndResume(t *testing.T) {
	t.Parallel()
	a, s := newTestAppWithStore(t)
	a.state = viewTimeline

	a, _ = update(t, a, keyRunes("c"))
	a, _ = update(t, a, keyRunes("later"))
	a, cmd := update(t, a, tea.KeyMsg{Type: tea.KeyCtrlD})
	require.NotNil(t, cmd)

	saved, ok := cmd().(draftSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	require.NotEmpty(t, saved.id)
	a, _ = update(t, a, saved)
	require.Equal(t, "draft saved", a.status)

	drafts, err := s.Drafts(context.Background())
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	a, cmd = update(t, a, keyRunes("d"))
	require.NotNil(t, cmd)
	loaded, ok := cmd().(draftLoadedMsg)
	require.True(t, ok)
	require.Equal(t, saved.id, loaded.id)

	a, _ = update(t, a, loaded)
	require.Equal(t, modalCompose, a.modal)
	require.Equal(t, "later", a.compose.Value())
	require.Equal(t, saved.id, a.draftID)
}

func TestPostedDraftIsDeleted(t *testing.T) {
	t.Parallel()
	a, s := newTestAppWithStore(t)
	a.state = viewTimeline

	id, err := s.SaveDraft(context.Background(), "ship it")
	require.NoError(t, err)

	a, cmd := update(t, a, keyRunes("d"))
	loaded, ok := cmd().(draftLoadedMsg)
	require.True(t, ok)
	require.Equal(t, id, loaded.id)
	a, _ = update(t, a, loaded)

	a, cmd = update(t, a, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	done, ok := cmd().(postDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	a, cmd = update(t, a, done)
	require.Empty(t, a.draftID)
	drain(cmd)

	drafts, err := s.Drafts(context.Background())
	require.NoError(t, err)
	require.Empty(t, drafts)
}

func TestResumeWithNoDrafts(t *testing.T) {
	t.Parallel()
	a, _ := newTestAppWithStore(t)
	a.state = viewTimeline

	_, cmd := update(t, a, keyRunes("d"))
	require.NotNil(t, cmd)
	require.Equal(t, statusMsg("no drafts"), cmd())
}

func TestTimelineSizeCapsPosts(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.cfg.UI.TimelineSize = 1
	a.fetchGen = 1

	a, _ = update(t, a, timelineMsg{gen: 1, posts: samplePosts()})
	require.Len(t, a.posts, 1)
	require.Equal(t, "first", a.posts[0].Text)
}

func TestDateFormatApplied(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.cfg.UI.DateFormat = "02 Jan 2006"
	a.posts = samplePosts()

	view := a.View()
	require.Contains(t, view, "01 Jun 2024")
	require.NotContains(t, view, "2024-06-01T10:00:00Z")
}

// No t.Parallel: points PERCH_CONFIG at a scratch file.
func TestLoginPersistsIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("PERCH_CONFIG", path)

	a := newTestApp(t)
	a.cfg.Bluesky.Transport = config.ModeAuto
	a.loginInputs[1].SetValue("bob.example")
	a.loginInputs[2].SetValue("app-password")

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, a.cfgDirty)

	a, _ = update(t, a, loginDoneMsg{token: bridge.MockSessionToken})
	require.False(t, a.cfgDirty)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "bob.example", cfg.Bluesky.Identifier)
}

func TestSearchModalMatchesCachedAuthors(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.authors = testAuthors()

	a, _ = update(t, a, keyRunes("/"))
	require.Equal(t, modalSearch, a.modal)

	a, _ = update(t, a, keyRunes("bob"))
	require.NotEmpty(t, a.matches)
	require.Equal(t, "bob.example", a.matches[0].Author.Handle)

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, modalNone, a.modal)
}

func TestTimelineViewRenders(t *testing.T) {
	t.Parallel()
	a := newTestApp(t)
	a.state = viewTimeline
	a.posts = samplePosts()
	a.width = 120
	a.height = 40

	view := a.View()
	require.Contains(t, view, "Timeline")
	require.Contains(t, view, "@bob.example")
	require.Contains(t, view, "first")
	require.Contains(t, view, "Profile")
}
