package tui

import (
	"errors"

	"github.com/perchapp/perch/internal/feed"
	"github.com/perchapp/perch/internal/store"
)

var (
	errLikeRejected = errors.New("like rejected by backend")
	errNoStore      = errors.New("no local store configured")
)

type loginDoneMsg struct {
	token string
	err   error
}

type timelineMsg struct {
	gen   int
	posts []feed.Post
}

type cachedTimelineMsg []feed.Post

type authorsMsg []store.Author

type detailMsg struct {
	post    feed.Post
	replies []feed.Reply
	err     error
}

type likeDoneMsg struct {
	uri string
	err error
}

type postDoneMsg struct {
	id  string
	err error
}

type draftSavedMsg struct {
	id  string
	err error
}

type draftLoadedMsg struct {
	id   string
	text string
}

type statusMsg string

type errMsg struct{ error }
