package bridge

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/perchapp/perch/internal/feed"
)

// recordingTransport captures the last call so tests can verify the
// dispatcher forwards commands and arguments unchanged.
type recordingTransport struct {
	lastCommand string
	lastReq     any
	loginToken  string
	posts       []feed.Post
	err         error
}

func (r *recordingTransport) Login(_ context.Context, req LoginRequest) (string, error) {
	r.lastCommand, r.lastReq = CmdLogin, req
	return r.loginToken, r.err
}

func (r *recordingTransport) Timeline(_ context.Context, req TimelineRequest) ([]feed.Post, error) {
	r.lastCommand, r.lastReq = CmdGetTimeline, req
	return r.posts, r.err
}

func (r *recordingTransport) CreatePost(_ context.Context, req CreatePostRequest) (string, error) {
	r.lastCommand, r.lastReq = CmdCreatePost, req
	return "at://did:plc:me/app.bsky.feed.post/3kabc", r.err
}

func (r *recordingTransport) LikePost(_ context.Context, req LikePostRequest) (bool, error) {
	r.lastCommand, r.lastReq = CmdLikePost, req
	return r.err == nil, r.err
}

func (r *recordingTransport) PostDetail(_ context.Context, req PostDetailRequest) (feed.Post, error) {
	r.lastCommand, r.lastReq = CmdGetPostDetail, req
	if len(r.posts) > 0 {
		return r.posts[0], r.err
	}
	return feed.Post{}, r.err
}

func (r *recordingTransport) PostReplies(_ context.Context, req PostRepliesRequest) ([]feed.Reply, error) {
	r.lastCommand, r.lastReq = CmdGetPostReplies, req
	return nil, r.err
}

func TestDispatcherForwardsVerbatim(t *testing.T) {
	t.Parallel()
	live := &recordingTransport{loginToken: "live-jwt"}
	d := NewDispatcher(func() Transport { return live }, NewMock())

	token, err := d.Login(context.Background(), LoginRequest{
		Service:    "https://bsky.social",
		Identifier: "alice.example",
		Password:   "app-password",
	})
	require.NoError(t, err)
	require.Equal(t, "live-jwt", token)
	require.Equal(t, CmdLogin, live.lastCommand)
	require.Equal(t, LoginRequest{
		Service:    "https://bsky.social",
		Identifier: "alice.example",
		Password:   "app-password",
	}, live.lastReq)
}

func TestDispatcherInvokeDecodesArgs(t *testing.T) {
	t.Parallel()
	live := &recordingTransport{}
	d := NewDispatcher(func() Transport { return live }, NewMock())

	res, err := d.Invoke(context.Background(), CmdCreatePost, map[string]any{
		"service": "https://pds.example",
		"session": "tok",
		"text":    "hello world",
	})
	require.NoError(t, err)
	require.Equal(t, "at://did:plc:me/app.bsky.feed.post/3kabc", res)
	require.Equal(t, CreatePostRequest{Service: "https://pds.example", Session: "tok", Text: "hello world"}, live.lastReq)
}

func TestDispatcherErrorsPassThrough(t *testing.T) {
	t.Parallel()
	boom := errors.New("rate limit exceeded")
	live := &recordingTransport{err: boom}
	d := NewDispatcher(func() Transport { return live }, NewMock())

	_, err := d.Timeline(context.Background(), TimelineRequest{Service: "https://bsky.social"})
	require.ErrorIs(t, err, boom)
}

func TestProbeReEvaluatedPerCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	live := &recordingTransport{loginToken: "live-jwt"}

	var available Transport // starts absent
	d := NewDispatcher(func() Transport { return available }, NewMock())

	token, err := d.Login(ctx, LoginRequest{})
	require.NoError(t, err)
	require.Equal(t, MockSessionToken, token)
	require.Empty(t, live.lastCommand)

	// Capability appears between calls; no reset required.
	available = live
	token, err = d.Login(ctx, LoginRequest{Identifier: "alice.example"})
	require.NoError(t, err)
	require.Equal(t, "live-jwt", token)
	require.Equal(t, CmdLogin, live.lastCommand)

	// And disappears again.
	available = nil
	token, err = d.Login(ctx, LoginRequest{})
	require.NoError(t, err)
	require.Equal(t, MockSessionToken, token)
}

// No t.Parallel: attaches a hook to the shared logrus logger.
func TestUnknownCommandEmitsDiagnostic(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	old := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(old)

	d := NewDispatcher(nil, NewMock())
	_, err := d.Invoke(context.Background(), "export_data", nil)
	require.Error(t, err)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Data["command"] == "export_data" {
			logged = true
			require.NotEmpty(t, entry.Data["invocation"])
		}
	}
	require.True(t, logged)
}

func TestNilProbeRoutesToMock(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(nil, NewMock())

	liked, err := d.LikePost(context.Background(), LikePostRequest{PostURI: "at://x"})
	require.NoError(t, err)
	require.True(t, liked)
}
