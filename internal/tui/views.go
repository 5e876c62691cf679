package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/perchapp/perch/internal/feed"
)

// styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	handleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	likedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	modalStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const (
	navWidth     = 18
	widgetsWidth = 30
)

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	var body string
	switch a.state {
	case viewLogin:
		body = a.renderLogin()
	case viewDetail:
		body = a.renderDetail()
	default:
		body = a.renderTimeline()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	if a.status != "" {
		body += "\n" + a.renderStatusBar()
	}
	return body
}

func (a *App) renderLogin() string {
	labels := [3]string{"Service", "Identifier", "Password"}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Perch — sign in to Bluesky"))
	b.WriteString("\n\n")
	for i, input := range a.loginInputs {
		marker := "  "
		if i == a.loginFocus {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-11s %s\n", marker, labels[i], input.View()))
	}
	b.WriteString("\n" + dimStyle.Render("[tab] next field  [enter] sign in  [ctrl+c] quit"))
	return b.String()
}

func (a *App) renderTimeline() string {
	feedWidth := a.feedWidth()

	nav := panelStyle.Width(navWidth).Render(a.renderNav())
	posts := panelStyle.Width(feedWidth).Render(a.renderFeed(feedWidth - 2))
	widgets := panelStyle.Width(widgetsWidth).Render(a.renderWidgets())

	return lipgloss.JoinHorizontal(lipgloss.Top, nav, posts, widgets)
}

func (a *App) feedWidth() int {
	if a.width == 0 {
		return 60
	}
	w := a.width - navWidth - widgetsWidth - 6
	if w < 40 {
		w = 40
	}
	return w
}

func (a *App) renderNav() string {
	lines := []string{
		titleStyle.Render("Perch"),
		"",
		"[r] refresh",
		"[c] compose",
		"[d] drafts",
		"[/] search",
		"[enter] thread",
		"[l] like",
		"",
		"[ctrl+l] logout",
		"[q] quit",
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderFeed(width int) string {
	header := titleStyle.Render("Timeline")
	if a.loading {
		header += "  " + a.spin.View()
	} else if a.fromCache {
		header += "  " + dimStyle.Render("(cached)")
	}

	if len(a.posts) == 0 {
		empty := "No posts yet. Press r to refresh."
		if a.loading {
			empty = "Loading timeline..."
		}
		return header + "\n\n" + dimStyle.Render(empty)
	}

	var b strings.Builder
	b.WriteString(header + "\n")
	for i, post := range a.posts {
		b.WriteString("\n")
		b.WriteString(a.renderPostEntry(post, width, i == a.cursor))
	}
	return b.String()
}

func (a *App) renderPostEntry(post feed.Post, width int, selected bool) string {
	marker := "  "
	if selected {
		marker = "▶ "
	}

	head := titleStyle.Render(post.Author.Name()) + " " + handleStyle.Render("@"+post.Author.Handle)
	if post.CreatedAt != "" {
		head += " " + dimStyle.Render(a.formatTime(post.CreatedAt))
	}

	text := truncate(strings.ReplaceAll(post.Text, "\n", " "), max(width-4, 10))

	counts := a.renderCounts(post)

	lines := []string{
		marker + head,
		"  " + text,
		"  " + counts,
	}
	if n := len(post.Images); n > 0 {
		noun := "images"
		if n == 1 {
			noun = "image"
		}
		lines = append(lines, "  "+dimStyle.Render(fmt.Sprintf("[%d %s]", n, noun)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (a *App) renderCounts(post feed.Post) string {
	likes := fmt.Sprintf("♥ %d", post.LikesCount)
	if a.liked[post.ID] {
		likes = likedStyle.Render(likes)
	} else {
		likes = dimStyle.Render(likes)
	}
	return likes + dimStyle.Render(fmt.Sprintf("  ⇄ %d  ↩ %d", post.RepostsCount, post.RepliesCount))
}

func (a *App) renderWidgets() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Profile") + "\n")
	if sess := a.sessionInfo(); sess != nil {
		b.WriteString("@" + sess.Handle + "\n")
		b.WriteString(dimStyle.Render(sess.DID) + "\n")
		b.WriteString(dimStyle.Render(sess.Service) + "\n")
	} else if a.token != "" {
		b.WriteString(dimStyle.Render("offline mode") + "\n")
	} else {
		b.WriteString(dimStyle.Render("not signed in") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("People") + "\n")
	if len(a.matches) > 0 {
		for _, m := range a.matches {
			b.WriteString(renderAuthorLine(m.Author.Handle, m.Author.DisplayName))
		}
	} else if len(a.authors) > 0 {
		shown := a.authors
		if len(shown) > 6 {
			shown = shown[:6]
		}
		for _, author := range shown {
			b.WriteString(renderAuthorLine(author.Handle, author.DisplayName))
		}
	} else {
		b.WriteString(dimStyle.Render("nobody seen yet") + "\n")
	}
	return b.String()
}

func renderAuthorLine(handle, displayName string) string {
	line := handleStyle.Render("@" + handle)
	if displayName != "" {
		line += " " + dimStyle.Render(truncate(displayName, widgetsWidth-len(handle)-6))
	}
	return line + "\n"
}

func (a *App) renderDetail() string {
	width := a.feedWidth() + navWidth

	var b strings.Builder
	b.WriteString(titleStyle.Render("Thread") + "\n\n")
	b.WriteString(titleStyle.Render(a.detail.Author.Name()) + " " + handleStyle.Render("@"+a.detail.Author.Handle))
	if a.detail.CreatedAt != "" {
		b.WriteString(" " + dimStyle.Render(a.formatTime(a.detail.CreatedAt)))
	}
	b.WriteString("\n" + a.detail.Text + "\n")
	for _, img := range a.detail.Images {
		b.WriteString(dimStyle.Render(img) + "\n")
	}
	b.WriteString(a.renderCounts(a.detail) + "\n")

	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Replies (%d)", len(a.replies))) + "\n")
	if len(a.replies) == 0 {
		b.WriteString(dimStyle.Render("no replies") + "\n")
	}
	for _, reply := range a.replies {
		b.WriteString("\n")
		head := titleStyle.Render(reply.Author.Name()) + " " + handleStyle.Render("@"+reply.Author.Handle)
		if reply.IsOwn {
			head += " " + likedStyle.Render("(you)")
		}
		if reply.CreatedAt != "" {
			head += " " + dimStyle.Render(a.formatTime(reply.CreatedAt))
		}
		b.WriteString(head + "\n")
		b.WriteString(truncate(reply.Text, max(width, 40)) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("[esc] back  [r] reload  [q] quit"))
	return b.String()
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalCompose:
		remaining := maxPostLength - len([]rune(a.compose.Value()))
		body := titleStyle.Render("Compose") + "\n" +
			a.compose.View() + "\n" +
			dimStyle.Render(fmt.Sprintf("%d left  [ctrl+s] post  [ctrl+d] save draft  [esc] discard", remaining))
		return modalStyle.Render(body)
	case modalSearch:
		body := titleStyle.Render("Find people") + "\n" + a.searchInput.View()
		if len(a.matches) > 0 {
			var lines []string
			for _, m := range a.matches {
				lines = append(lines, strings.TrimRight(renderAuthorLine(m.Author.Handle, m.Author.DisplayName), "\n"))
			}
			body += "\n" + strings.Join(lines, "\n")
		} else if strings.TrimSpace(a.searchInput.Value()) != "" {
			body += "\n" + dimStyle.Render("no matches in cache")
		}
		body += "\n" + dimStyle.Render("[esc] close")
		return modalStyle.Render(body)
	default:
		return ""
	}
}

func (a *App) renderStatusBar() string {
	flat := strings.ReplaceAll(a.status, "\n", " ")
	if a.width == 0 {
		return statusStyle.Render(flat)
	}
	return statusStyle.Width(a.width).Render(truncate(flat, a.width-2))
}

// formatTime renders a wire timestamp in the configured date format.
// Unparseable or unconfigured values pass through untouched.
func (a *App) formatTime(s string) string {
	if a.cfg.UI.DateFormat == "" || s == "" {
		return s
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return ts.Format(a.cfg.UI.DateFormat)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}
