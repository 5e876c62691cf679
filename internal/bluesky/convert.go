package bluesky

import (
	appbsky "github.com/bluesky-social/indigo/api/bsky"

	"github.com/perchapp/perch/internal/feed"
)

// postFromView flattens a hydrated PostView into the record shape the
// views render. CreatedAt stays a string; IndexedAt fills in when the
// record itself is missing or of an unexpected lexicon type.
func postFromView(pv *appbsky.FeedDefs_PostView) feed.Post {
	p := feed.Post{ID: pv.Uri}

	if pv.Author != nil {
		p.Author = feed.Author{
			DID:    pv.Author.Did,
			Handle: pv.Author.Handle,
			Avatar: pv.Author.Avatar,
		}
		if pv.Author.DisplayName != nil {
			p.Author.DisplayName = *pv.Author.DisplayName
		}
	}

	if pv.Record != nil {
		if rec, ok := pv.Record.Val.(*appbsky.FeedPost); ok {
			p.Text = rec.Text
			p.CreatedAt = rec.CreatedAt
		}
	}
	if p.CreatedAt == "" {
		p.CreatedAt = pv.IndexedAt
	}

	if pv.LikeCount != nil {
		p.LikesCount = int(*pv.LikeCount)
	}
	if pv.RepostCount != nil {
		p.RepostsCount = int(*pv.RepostCount)
	}
	if pv.ReplyCount != nil {
		p.RepliesCount = int(*pv.ReplyCount)
	}

	if pv.Embed != nil && pv.Embed.EmbedImages_View != nil {
		for _, img := range pv.Embed.EmbedImages_View.Images {
			if img == nil || img.Fullsize == "" {
				continue
			}
			p.Images = append(p.Images, img.Fullsize)
		}
	}
	return p
}
