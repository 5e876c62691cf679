// Package bridge is the seam between the views and the backend. Views
// call a Transport; the Dispatcher picks, per call, whether the live
// transport or the canned mock answers.
package bridge

import (
	"context"
	"fmt"

	"github.com/perchapp/perch/internal/feed"
)

// Command names as they appear on the untyped Invoke surface.
const (
	CmdLogin          = "login"
	CmdGetTimeline    = "get_timeline"
	CmdCreatePost     = "create_post"
	CmdLikePost       = "like_post"
	CmdGetPostDetail  = "get_post_detail"
	CmdGetPostReplies = "get_post_replies"
)

// Transport defines one method per command. Implementations must not
// retry, cache, or reinterpret failures; every error surfaces as-is.
type Transport interface {
	Login(ctx context.Context, req LoginRequest) (string, error)
	Timeline(ctx context.Context, req TimelineRequest) ([]feed.Post, error)
	CreatePost(ctx context.Context, req CreatePostRequest) (string, error)
	LikePost(ctx context.Context, req LikePostRequest) (bool, error)
	PostDetail(ctx context.Context, req PostDetailRequest) (feed.Post, error)
	PostReplies(ctx context.Context, req PostRepliesRequest) ([]feed.Reply, error)
}

type LoginRequest struct {
	Service    string `json:"service"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type TimelineRequest struct {
	Service string `json:"service"`
	Session string `json:"session"`
}

type CreatePostRequest struct {
	Service string `json:"service"`
	Session string `json:"session"`
	Text    string `json:"text"`
}

type LikePostRequest struct {
	Service string `json:"service"`
	Session string `json:"session"`
	PostURI string `json:"post_uri"`
}

type PostDetailRequest struct {
	Service string `json:"service"`
	Session string `json:"session"`
	PostURI string `json:"post_uri"`
}

type PostRepliesRequest struct {
	Service string `json:"service"`
	Session string `json:"session"`
	PostURI string `json:"post_uri"`
}

// ErrUnknownCommand is returned for a command name absent from the
// dispatch table or the mock's canned table.
type ErrUnknownCommand struct {
	Command string
}

func (e ErrUnknownCommand) Error() string {
	return fmt.Sprintf("bridge: unimplemented command %q", e.Command)
}
