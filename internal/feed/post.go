// Package feed holds the passive record shapes shared by the transport
// layer and the views. Records are constructed from a response payload,
// displayed, and only ever mutated by local view state.
package feed

// Author identifies the account behind a post.
type Author struct {
	DID         string  `json:"did"`
	Handle      string  `json:"handle"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Name returns the display name, falling back to the handle.
func (a Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Handle
}

// Post is a single timeline entry. ID is the record's AT-URI and
// CreatedAt is the formatted string off the wire, not a parsed time.
type Post struct {
	ID           string   `json:"id"`
	Author       Author   `json:"author"`
	Text         string   `json:"text"`
	CreatedAt    string   `json:"created_at"`
	Images       []string `json:"images,omitempty"`
	LikesCount   int      `json:"likes_count"`
	RepostsCount int      `json:"reposts_count"`
	RepliesCount int      `json:"replies_count"`
}

// Reply is a post in a thread, flagged when the logged-in account wrote it.
type Reply struct {
	Post
	IsOwn bool `json:"is_own"`
}

// Session is what the live transport keeps after login. Only the access
// token crosses the command surface; the rest authenticates follow-ups.
type Session struct {
	AccessJwt  string `json:"access_jwt"`
	RefreshJwt string `json:"refresh_jwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	Service    string `json:"service"`
}
