package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/perchapp/perch/internal/feed"
)

// Probe reports whether a live transport is available right now. It is
// consulted fresh on every call and must be side-effect free; returning
// nil routes the call to the mock.
type Probe func() Transport

// Dispatcher routes each command to the live transport when the probe
// finds one, and to the mock otherwise. It performs no recovery, no
// retries and no caching; errors pass through unchanged.
type Dispatcher struct {
	probe Probe
	mock  Transport
}

func NewDispatcher(probe Probe, mock Transport) *Dispatcher {
	if mock == nil {
		mock = NewMock()
	}
	return &Dispatcher{probe: probe, mock: mock}
}

func (d *Dispatcher) pick() Transport {
	if d.probe != nil {
		if t := d.probe(); t != nil {
			return t
		}
	}
	return d.mock
}

func (d *Dispatcher) Login(ctx context.Context, req LoginRequest) (string, error) {
	return d.pick().Login(ctx, req)
}

func (d *Dispatcher) Timeline(ctx context.Context, req TimelineRequest) ([]feed.Post, error) {
	return d.pick().Timeline(ctx, req)
}

func (d *Dispatcher) CreatePost(ctx context.Context, req CreatePostRequest) (string, error) {
	return d.pick().CreatePost(ctx, req)
}

func (d *Dispatcher) LikePost(ctx context.Context, req LikePostRequest) (bool, error) {
	return d.pick().LikePost(ctx, req)
}

func (d *Dispatcher) PostDetail(ctx context.Context, req PostDetailRequest) (feed.Post, error) {
	return d.pick().PostDetail(ctx, req)
}

func (d *Dispatcher) PostReplies(ctx context.Context, req PostRepliesRequest) ([]feed.Reply, error) {
	return d.pick().PostReplies(ctx, req)
}

var _ Transport = (*Dispatcher)(nil)

// Invoke is the untyped surface: a command name plus an argument map.
// The map is decoded into the command's typed request and dispatched
// through the same per-call routing as the typed methods.
func (d *Dispatcher) Invoke(ctx context.Context, command string, args map[string]any) (any, error) {
	switch command {
	case CmdLogin:
		var req LoginRequest
		if err := decodeArgs(command, args, &req); err != nil {
			return nil, err
		}
		return d.Login(ctx, req)
	case CmdGetTimeline:
		var req TimelineRequest
		if err := decodeArgs(command, args, &req); err != nil {
			return nil, err
		}
		return d.Timeline(ctx, req)
	case CmdCreatePost:
		var req CreatePostRequest
		if err := decodeArgs(command, args, &req); err != nil {
			return nil, err
		}
		return d.CreatePost(ctx, req)
	case CmdLikePost:
		var req LikePostRequest
		if err := decodeArgs(command, args, &req); err != nil {
			return nil, err
		}
		return d.LikePost(ctx, req)
	case CmdGetPostDetail:
		var req PostDetailRequest
		if err := decodeArgs(command, args, &req); err != nil {
			return nil, err
		}
		return d.PostDetail(ctx, req)
	case CmdGetPostReplies:
		var req PostRepliesRequest
		if err := decodeArgs(command, args, &req); err != nil {
			return nil, err
		}
		return d.PostReplies(ctx, req)
	default:
		log.WithFields(log.Fields{
			"invocation": uuid.NewString(),
			"command":    command,
		}).Debug("unknown command rejected")
		return nil, ErrUnknownCommand{Command: command}
	}
}

// decodeArgs maps loose string-keyed arguments onto a typed request via
// the request's json tags. Null values and absent keys decode to zero
// values; extra keys are ignored, matching the old any-map contract.
func decodeArgs(command string, args map[string]any, out any) error {
	if args == nil {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("bridge: encode args for %s: %w", command, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("bridge: decode args for %s: %w", command, err)
	}
	return nil
}
