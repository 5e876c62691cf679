// Package bluesky is the live transport: bridge commands mapped onto
// ATProto XRPC calls against a PDS.
package bluesky

import (
	"context"
	"fmt"
	"net/http"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/perchapp/perch/internal/bridge"
	"github.com/perchapp/perch/internal/feed"
)

const (
	DefaultService = "https://bsky.social"

	timelineAlgorithm = "reverse-chronological"
	timelinePageSize  = 50
	threadDepth       = 1
)

// Client talks to a single PDS. Login stores the session; follow-up
// calls authenticate with it. The session token on each request is the
// caller's opaque handle and is not re-validated here.
type Client struct {
	http    *http.Client
	session *feed.Session
}

func NewClient(httpClient *http.Client) *Client {
	return &Client{http: httpClient}
}

// NewClientWithSession primes the client with a previously saved
// session so the app can skip the login view.
func NewClientWithSession(httpClient *http.Client, sess feed.Session) *Client {
	return &Client{http: httpClient, session: &sess}
}

// Session returns the current session, or nil before login.
func (c *Client) Session() *feed.Session {
	return c.session
}

func (c *Client) xrpcClient(service string) *xrpc.Client {
	host := service
	if host == "" && c.session != nil {
		host = c.session.Service
	}
	if host == "" {
		host = DefaultService
	}
	cl := &xrpc.Client{Host: host, Client: c.http}
	if c.session != nil {
		cl.Auth = &xrpc.AuthInfo{
			AccessJwt:  c.session.AccessJwt,
			RefreshJwt: c.session.RefreshJwt,
			Did:        c.session.DID,
			Handle:     c.session.Handle,
		}
	}
	return cl
}

func (c *Client) Login(ctx context.Context, req bridge.LoginRequest) (string, error) {
	host := req.Service
	if host == "" {
		host = DefaultService
	}
	cl := &xrpc.Client{Host: host, Client: c.http}

	sess, err := comatproto.ServerCreateSession(ctx, cl, &comatproto.ServerCreateSession_Input{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return "", err
	}

	c.session = &feed.Session{
		AccessJwt:  sess.AccessJwt,
		RefreshJwt: sess.RefreshJwt,
		DID:        sess.Did,
		Handle:     sess.Handle,
		Service:    host,
	}
	return sess.AccessJwt, nil
}

func (c *Client) Timeline(ctx context.Context, req bridge.TimelineRequest) ([]feed.Post, error) {
	out, err := appbsky.FeedGetTimeline(ctx, c.xrpcClient(req.Service), timelineAlgorithm, "", timelinePageSize)
	if err != nil {
		return nil, err
	}
	posts := make([]feed.Post, 0, len(out.Feed))
	for _, item := range out.Feed {
		if item == nil || item.Post == nil {
			continue
		}
		posts = append(posts, postFromView(item.Post))
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, req bridge.CreatePostRequest) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("bluesky: create post: not logged in")
	}
	out, err := comatproto.RepoCreateRecord(ctx, c.xrpcClient(req.Service), &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.session.DID,
		Record: &lexutil.LexiconTypeDecoder{Val: &appbsky.FeedPost{
			Text:      req.Text,
			CreatedAt: nowTimestamp(),
		}},
	})
	if err != nil {
		return "", err
	}
	return out.Uri, nil
}

func (c *Client) LikePost(ctx context.Context, req bridge.LikePostRequest) (bool, error) {
	if c.session == nil {
		return false, fmt.Errorf("bluesky: like post: not logged in")
	}
	cl := c.xrpcClient(req.Service)

	// createRecord needs the strong ref, so resolve the CID first.
	views, err := appbsky.FeedGetPosts(ctx, cl, []string{req.PostURI})
	if err != nil {
		return false, err
	}
	if len(views.Posts) == 0 || views.Posts[0] == nil {
		return false, fmt.Errorf("bluesky: like post: %s not found", req.PostURI)
	}

	_, err = comatproto.RepoCreateRecord(ctx, cl, &comatproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.like",
		Repo:       c.session.DID,
		Record: &lexutil.LexiconTypeDecoder{Val: &appbsky.FeedLike{
			CreatedAt: nowTimestamp(),
			Subject: &comatproto.RepoStrongRef{
				Uri: req.PostURI,
				Cid: views.Posts[0].Cid,
			},
		}},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) PostDetail(ctx context.Context, req bridge.PostDetailRequest) (feed.Post, error) {
	view, _, err := c.thread(ctx, req.Service, req.PostURI)
	if err != nil {
		return feed.Post{}, err
	}
	return view, nil
}

func (c *Client) PostReplies(ctx context.Context, req bridge.PostRepliesRequest) ([]feed.Reply, error) {
	_, replies, err := c.thread(ctx, req.Service, req.PostURI)
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (c *Client) thread(ctx context.Context, service, uri string) (feed.Post, []feed.Reply, error) {
	out, err := appbsky.FeedGetPostThread(ctx, c.xrpcClient(service), threadDepth, 0, uri)
	if err != nil {
		return feed.Post{}, nil, err
	}
	if out.Thread == nil || out.Thread.FeedDefs_ThreadViewPost == nil || out.Thread.FeedDefs_ThreadViewPost.Post == nil {
		return feed.Post{}, nil, fmt.Errorf("bluesky: thread for %s unavailable", uri)
	}
	tv := out.Thread.FeedDefs_ThreadViewPost

	ownDid := ""
	if c.session != nil {
		ownDid = c.session.DID
	}
	replies := make([]feed.Reply, 0, len(tv.Replies))
	for _, el := range tv.Replies {
		if el == nil || el.FeedDefs_ThreadViewPost == nil || el.FeedDefs_ThreadViewPost.Post == nil {
			continue
		}
		pv := el.FeedDefs_ThreadViewPost.Post
		reply := feed.Reply{Post: postFromView(pv)}
		if pv.Author != nil && ownDid != "" {
			reply.IsOwn = pv.Author.Did == ownDid
		}
		replies = append(replies, reply)
	}
	return postFromView(tv.Post), replies, nil
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

var _ bridge.Transport = (*Client)(nil)
