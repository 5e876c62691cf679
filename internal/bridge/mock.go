package bridge

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/perchapp/perch/internal/feed"
)

// Canned mock results. Fixed on purpose: the mock never echoes
// arguments or simulates state, so a second call always answers the
// same as the first.
const (
	MockSessionToken = "mock-session-token"
	MockPostID       = "mock-post-id"
)

// Mock answers every known command with a canned result so the views
// can run with no backend at all. Arguments are ignored entirely.
// Every invocation is logged; that is observability, not contract.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) trace(command string) {
	log.WithFields(log.Fields{
		"invocation": uuid.NewString(),
		"command":    command,
		"transport":  "mock",
	}).Debug("mock responder invoked")
}

func (m *Mock) Login(ctx context.Context, req LoginRequest) (string, error) {
	m.trace(CmdLogin)
	return MockSessionToken, nil
}

func (m *Mock) Timeline(ctx context.Context, req TimelineRequest) ([]feed.Post, error) {
	m.trace(CmdGetTimeline)
	return []feed.Post{}, nil
}

func (m *Mock) CreatePost(ctx context.Context, req CreatePostRequest) (string, error) {
	m.trace(CmdCreatePost)
	return MockPostID, nil
}

func (m *Mock) LikePost(ctx context.Context, req LikePostRequest) (bool, error) {
	m.trace(CmdLikePost)
	return true, nil
}

func (m *Mock) PostDetail(ctx context.Context, req PostDetailRequest) (feed.Post, error) {
	m.trace(CmdGetPostDetail)
	return feed.Post{}, nil
}

func (m *Mock) PostReplies(ctx context.Context, req PostRepliesRequest) ([]feed.Reply, error) {
	m.trace(CmdGetPostReplies)
	return []feed.Reply{}, nil
}

var _ Transport = (*Mock)(nil)
