// Package tui is the terminal front end: a login view, a three-panel
// timeline (navigation, feed, widgets), a post-detail view with
// replies, and modals for composing and handle search. All backend
// traffic goes through the bridge transport it is handed.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/perchapp/perch/internal/bridge"
	"github.com/perchapp/perch/internal/config"
	"github.com/perchapp/perch/internal/feed"
	"github.com/perchapp/perch/internal/search"
	"github.com/perchapp/perch/internal/session"
	"github.com/perchapp/perch/internal/store"
)

type appState string

const (
	viewLogin    appState = "login"
	viewTimeline appState = "timeline"
	viewDetail   appState = "detail"
)

type modalState string

const (
	modalNone    modalState = ""
	modalCompose modalState = "compose"
	modalSearch  modalState = "search"
)

const maxPostLength = 300

// Deps is everything the App needs injected at wiring time.
type Deps struct {
	Transport bridge.Transport
	Store     *store.Store
	// SessionInfo reports the live session, or nil when the mock is
	// answering. Profile widgets degrade gracefully without it.
	SessionInfo func() *feed.Session
}

// App ties together views.
type App struct {
	ctx   context.Context
	cfg   config.Config
	deps  Deps
	state appState
	modal modalState

	token     string
	posts     []feed.Post
	fromCache bool
	cursor    int
	fetchGen  int
	loading   bool

	detail  feed.Post
	replies []feed.Reply

	// optimistic like state: exactly one writer (this view)
	liked map[string]bool

	authors  []store.Author
	matches  []search.Match
	draftID  string
	cfgDirty bool
	status   string
	width    int
	height   int
	quitting bool

	loginInputs [3]textinput.Model
	loginFocus  int
	compose     textarea.Model
	searchInput textinput.Model
	spin        spinner.Model
	keys        keyMap
}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Back    key.Binding
	Like    key.Binding
	Refresh key.Binding
	Compose key.Binding
	Drafts  key.Binding
	Search  key.Binding
	Logout  key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Like:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Compose: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compose")),
		Drafts:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "drafts")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Logout:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "logout")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func New(ctx context.Context, cfg config.Config, deps Deps, restored *feed.Session) *App {
	a := &App{
		ctx:   ctx,
		cfg:   cfg,
		deps:  deps,
		state: viewLogin,
		liked: map[string]bool{},
		keys:  newKeyMap(),
	}

	service := textinput.New()
	service.Placeholder = "https://bsky.social"
	service.SetValue(cfg.Bluesky.Service)
	identifier := textinput.New()
	identifier.Placeholder = "handle or email"
	identifier.SetValue(cfg.Bluesky.Identifier)
	password := textinput.New()
	password.Placeholder = "app password"
	password.EchoMode = textinput.EchoPassword
	a.loginInputs = [3]textinput.Model{service, identifier, password}
	a.focusLogin(1)
	if cfg.Bluesky.Identifier != "" {
		a.focusLogin(2)
	}

	a.compose = textarea.New()
	a.compose.Placeholder = "What's happening?"
	a.compose.CharLimit = maxPostLength
	a.compose.SetWidth(60)
	a.compose.SetHeight(5)

	a.searchInput = textinput.New()
	a.searchInput.Placeholder = "handle or name"

	a.spin = spinner.New(spinner.WithSpinner(spinner.Dot))

	if restored != nil {
		a.token = restored.AccessJwt
		a.state = viewTimeline
	}
	return a
}

func (a *App) Init() tea.Cmd {
	if a.state == viewTimeline {
		return tea.Batch(a.loadCachedCmd(), a.refresh(), a.loadAuthorsCmd())
	}
	return textinput.Blink
}

func (a *App) focusLogin(idx int) {
	a.loginFocus = idx
	for i := range a.loginInputs {
		if i == idx {
			a.loginInputs[i].Focus()
		} else {
			a.loginInputs[i].Blur()
		}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.compose.SetWidth(min(68, max(30, a.width-12)))
		return a, nil

	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		switch a.state {
		case viewLogin:
			return a.handleLoginKey(m)
		case viewDetail:
			return a.handleDetailKey(m)
		default:
			return a.handleTimelineKey(m)
		}

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd

	case loginDoneMsg:
		if m.err != nil {
			a.status = "login failed: " + m.err.Error()
			return a, nil
		}
		a.token = m.token
		a.state = viewTimeline
		a.status = "logged in"
		if sess := a.sessionInfo(); sess != nil {
			if err := session.Save(*sess); err != nil {
				a.status = "logged in (session not saved: " + err.Error() + ")"
			}
		}
		if a.cfgDirty {
			if err := config.Save(a.cfg); err != nil {
				a.status = "logged in (config not saved: " + err.Error() + ")"
			}
			a.cfgDirty = false
		}
		return a, tea.Batch(a.refresh(), a.loadAuthorsCmd())

	case timelineMsg:
		if m.gen != a.fetchGen {
			return a, nil // stale fetch, a newer one is in flight
		}
		posts := m.posts
		if size := a.cfg.UI.TimelineSize; size > 0 && len(posts) > size {
			posts = posts[:size]
		}
		a.loading = false
		a.posts = posts
		a.fromCache = false
		if a.cursor >= len(a.posts) {
			a.cursor = 0
		}
		if a.status == "" || strings.HasPrefix(a.status, "refreshing") {
			a.status = ""
		}
		return a, tea.Batch(a.cacheTimelineCmd(posts), a.loadAuthorsCmd())

	case cachedTimelineMsg:
		// Cache only fills the gap before the first fetch lands.
		if len(a.posts) == 0 && len(m) > 0 {
			a.posts = m
			a.fromCache = true
		}
		return a, nil

	case authorsMsg:
		a.authors = m
		return a, nil

	case detailMsg:
		if m.err != nil {
			a.status = "thread failed: " + m.err.Error()
			return a, nil
		}
		a.detail = m.post
		a.replies = m.replies
		a.state = viewDetail
		return a, nil

	case likeDoneMsg:
		if m.err != nil {
			// roll the optimistic bump back
			a.rollbackLike(m.uri)
			a.status = "like failed: " + m.err.Error()
		}
		return a, nil

	case postDoneMsg:
		if m.err != nil {
			a.status = "post failed: " + m.err.Error()
			return a, nil
		}
		a.status = "posted " + m.id
		var cmds []tea.Cmd
		if a.draftID != "" {
			cmds = append(cmds, a.deleteDraftCmd(a.draftID))
			a.draftID = ""
		}
		cmds = append(cmds, a.refresh())
		return a, tea.Batch(cmds...)

	case draftSavedMsg:
		if m.err != nil {
			a.status = "draft not saved: " + m.err.Error()
		} else {
			a.status = "draft saved"
		}
		return a, nil

	case draftLoadedMsg:
		a.modal = modalCompose
		a.compose.Reset()
		a.compose.SetValue(m.text)
		a.compose.Focus()
		a.draftID = m.id
		return a, textarea.Blink

	case statusMsg:
		a.status = string(m)
		return a, nil

	case errMsg:
		a.loading = false
		a.status = "error: " + m.Error()
		return a, nil
	}

	return a, nil
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "ctrl+c":
		a.quitting = true
		return a, tea.Quit
	case "tab", "down":
		a.focusLogin((a.loginFocus + 1) % len(a.loginInputs))
		return a, nil
	case "shift+tab", "up":
		a.focusLogin((a.loginFocus + len(a.loginInputs) - 1) % len(a.loginInputs))
		return a, nil
	case "enter":
		svc := strings.TrimSpace(a.loginInputs[0].Value())
		id := strings.TrimSpace(a.loginInputs[1].Value())
		pw := a.loginInputs[2].Value()
		if id == "" || pw == "" {
			a.status = "identifier and password required"
			return a, nil
		}
		// remember the identifier for next run once login succeeds
		if id != a.cfg.Bluesky.Identifier {
			a.cfg.Bluesky.Identifier = id
			a.cfgDirty = true
		}
		a.status = "logging in..."
		return a, a.loginCmd(svc, id, pw)
	}
	var cmd tea.Cmd
	a.loginInputs[a.loginFocus], cmd = a.loginInputs[a.loginFocus].Update(m)
	return a, cmd
}

func (a *App) handleTimelineKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		a.quitting = true
		return a, tea.Quit
	case key.Matches(m, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.Down):
		if a.cursor < len(a.posts)-1 {
			a.cursor++
		}
	case key.Matches(m, a.keys.Refresh):
		a.status = "refreshing..."
		return a, a.refresh()
	case key.Matches(m, a.keys.Like):
		return a, a.toggleLike()
	case key.Matches(m, a.keys.Open):
		if len(a.posts) == 0 {
			return a, nil
		}
		a.status = "loading thread..."
		return a, a.detailCmd(a.posts[a.cursor].ID)
	case key.Matches(m, a.keys.Compose):
		a.openCompose()
		return a, textarea.Blink
	case key.Matches(m, a.keys.Drafts):
		return a, a.resumeDraftCmd()
	case key.Matches(m, a.keys.Search):
		a.modal = modalSearch
		a.searchInput.SetValue("")
		a.searchInput.Focus()
		a.matches = nil
		return a, textinput.Blink
	case key.Matches(m, a.keys.Logout):
		return a, a.logoutCmd()
	}
	return a, nil
}

func (a *App) handleDetailKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.Quit):
		a.quitting = true
		return a, tea.Quit
	case key.Matches(m, a.keys.Back):
		a.state = viewTimeline
	case key.Matches(m, a.keys.Refresh):
		return a, a.detailCmd(a.detail.ID)
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalCompose:
		switch m.String() {
		case "esc":
			a.modal = modalNone
			a.compose.Reset()
			a.draftID = ""
		case "ctrl+s":
			text := strings.TrimSpace(a.compose.Value())
			if text == "" {
				a.status = "nothing to post"
				return a, nil
			}
			a.modal = modalNone
			a.compose.Reset()
			a.status = "posting..."
			return a, a.createPostCmd(text)
		case "ctrl+d":
			text := strings.TrimSpace(a.compose.Value())
			old := a.draftID
			a.modal = modalNone
			a.compose.Reset()
			a.draftID = ""
			if text == "" {
				return a, nil
			}
			// re-saving a resumed draft replaces it
			if old != "" {
				return a, tea.Batch(a.saveDraftCmd(text), a.deleteDraftCmd(old))
			}
			return a, a.saveDraftCmd(text)
		default:
			var cmd tea.Cmd
			a.compose, cmd = a.compose.Update(m)
			return a, cmd
		}
	case modalSearch:
		switch m.String() {
		case "esc", "enter":
			a.modal = modalNone
			a.searchInput.Blur()
		default:
			var cmd tea.Cmd
			a.searchInput, cmd = a.searchInput.Update(m)
			a.matches = search.Handles(a.searchInput.Value(), a.authors, 8)
			return a, cmd
		}
	}
	return a, nil
}

func (a *App) openCompose() {
	a.modal = modalCompose
	a.compose.Reset()
	a.compose.Focus()
	a.draftID = ""
}

// toggleLike flips local like state immediately and, on first like,
// tells the backend. Un-like stays local: the counter is display
// state with a single writer, and no remote unlike is wired.
func (a *App) toggleLike() tea.Cmd {
	if len(a.posts) == 0 {
		return nil
	}
	post := &a.posts[a.cursor]
	uri := post.ID
	if a.liked[uri] {
		a.liked[uri] = false
		if post.LikesCount > 0 {
			post.LikesCount--
		}
		return nil
	}
	a.liked[uri] = true
	post.LikesCount++
	return a.likeCmd(uri)
}

func (a *App) rollbackLike(uri string) {
	if !a.liked[uri] {
		return
	}
	a.liked[uri] = false
	for i := range a.posts {
		if a.posts[i].ID == uri && a.posts[i].LikesCount > 0 {
			a.posts[i].LikesCount--
		}
	}
}

func (a *App) sessionInfo() *feed.Session {
	if a.deps.SessionInfo == nil {
		return nil
	}
	return a.deps.SessionInfo()
}

// commands

func (a *App) refresh() tea.Cmd {
	a.fetchGen++
	a.loading = true
	gen := a.fetchGen
	return tea.Batch(a.spin.Tick, func() tea.Msg {
		posts, err := a.deps.Transport.Timeline(a.ctx, bridge.TimelineRequest{
			Service: a.cfg.Bluesky.Service,
			Session: a.token,
		})
		if err != nil {
			return errMsg{err}
		}
		return timelineMsg{gen: gen, posts: posts}
	})
}

func (a *App) loginCmd(service, identifier, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := a.deps.Transport.Login(a.ctx, bridge.LoginRequest{
			Service:    service,
			Identifier: identifier,
			Password:   password,
		})
		return loginDoneMsg{token: token, err: err}
	}
}

func (a *App) likeCmd(uri string) tea.Cmd {
	return func() tea.Msg {
		ok, err := a.deps.Transport.LikePost(a.ctx, bridge.LikePostRequest{
			Service: a.cfg.Bluesky.Service,
			Session: a.token,
			PostURI: uri,
		})
		if err == nil && !ok {
			err = errLikeRejected
		}
		return likeDoneMsg{uri: uri, err: err}
	}
}

func (a *App) detailCmd(uri string) tea.Cmd {
	return func() tea.Msg {
		post, err := a.deps.Transport.PostDetail(a.ctx, bridge.PostDetailRequest{
			Service: a.cfg.Bluesky.Service,
			Session: a.token,
			PostURI: uri,
		})
		if err != nil {
			return detailMsg{err: err}
		}
		replies, err := a.deps.Transport.PostReplies(a.ctx, bridge.PostRepliesRequest{
			Service: a.cfg.Bluesky.Service,
			Session: a.token,
			PostURI: uri,
		})
		if err != nil {
			return detailMsg{err: err}
		}
		return detailMsg{post: post, replies: replies}
	}
}

func (a *App) createPostCmd(text string) tea.Cmd {
	return func() tea.Msg {
		id, err := a.deps.Transport.CreatePost(a.ctx, bridge.CreatePostRequest{
			Service: a.cfg.Bluesky.Service,
			Session: a.token,
			Text:    text,
		})
		return postDoneMsg{id: id, err: err}
	}
}

func (a *App) loadCachedCmd() tea.Cmd {
	if a.deps.Store == nil {
		return nil
	}
	return func() tea.Msg {
		posts, err := a.deps.Store.CachedTimeline(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return cachedTimelineMsg(posts)
	}
}

func (a *App) cacheTimelineCmd(posts []feed.Post) tea.Cmd {
	if a.deps.Store == nil || len(posts) == 0 {
		return nil
	}
	return func() tea.Msg {
		if err := a.deps.Store.CacheTimeline(a.ctx, posts); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) loadAuthorsCmd() tea.Cmd {
	if a.deps.Store == nil {
		return nil
	}
	return func() tea.Msg {
		authors, err := a.deps.Store.Authors(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return authorsMsg(authors)
	}
}

func (a *App) saveDraftCmd(text string) tea.Cmd {
	if a.deps.Store == nil {
		return func() tea.Msg { return draftSavedMsg{err: errNoStore} }
	}
	return func() tea.Msg {
		id, err := a.deps.Store.SaveDraft(a.ctx, text)
		return draftSavedMsg{id: id, err: err}
	}
}

// resumeDraftCmd loads the most recent draft into the compose modal.
func (a *App) resumeDraftCmd() tea.Cmd {
	if a.deps.Store == nil {
		return func() tea.Msg { return statusMsg("no drafts") }
	}
	return func() tea.Msg {
		drafts, err := a.deps.Store.Drafts(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		if len(drafts) == 0 {
			return statusMsg("no drafts")
		}
		return draftLoadedMsg{id: drafts[0].ID, text: drafts[0].Text}
	}
}

func (a *App) deleteDraftCmd(id string) tea.Cmd {
	if a.deps.Store == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.deps.Store.DeleteDraft(a.ctx, id); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (a *App) logoutCmd() tea.Cmd {
	a.token = ""
	a.posts = nil
	a.cursor = 0
	a.state = viewLogin
	a.focusLogin(2)
	return func() tea.Msg {
		if err := session.Clear(); err != nil {
			return errMsg{err}
		}
		return statusMsg("logged out")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
