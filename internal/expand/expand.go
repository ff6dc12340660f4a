// Package expand turns playlist and channel references into a bounded list
// of video refs by paging through the Data API.
package expand

import (
	"context"
	"fmt"
	"log"

	"github.com/jorikvm/tubescribe/internal/refs"
	"github.com/jorikvm/tubescribe/internal/tube"
)

// Outcome is the (possibly partial) result of expanding a reference. Empty
// Refs with non-empty Errors is a valid outcome, not a crash: the
// orchestrator decides whether that is fatal.
type Outcome struct {
	Refs   []refs.VideoRef
	Errors []string
}

// Lister is the slice of the YouTube client expansion needs.
type Lister interface {
	PlaylistPage(ctx context.Context, playlistID, token string) (*tube.PlaylistPage, error)
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)
	ChannelIDByHandle(ctx context.Context, handle string) (string, error)
}

type Expander struct {
	Yt Lister
}

// Expand resolves a playlist or channel reference into at most limit video
// refs, in platform order, de-duplicated. Paging is sequential (the API
// hands out page tokens one at a time); a page failure is recorded and ends
// the walk, keeping whatever was already collected.
func (e *Expander) Expand(ctx context.Context, src refs.Source, limit int) Outcome {
	switch s := src.(type) {
	case refs.SourcePlaylist:
		id, ok := refs.PlaylistID(string(s))
		if !ok {
			return Outcome{
				Errors: []string{fmt.Sprintf("could not extract a playlist id from %q", string(s))},
			}
		}
		return e.playlist(ctx, id, limit)
	case refs.SourceChannel:
		return e.channel(ctx, string(s), limit)
	default:
		return Outcome{Errors: []string{fmt.Sprintf("reference %T is not expandable", src)}}
	}
}

func (e *Expander) playlist(ctx context.Context, playlistID string, limit int) Outcome {
	out := Outcome{}
	seen := map[string]struct{}{}
	var token string
	for {
		page, err := e.Yt.PlaylistPage(ctx, playlistID, token)
		if err != nil {
			log.Printf("[WARN]: playlist %q page %q failed: %v", playlistID, token, err)
			out.Errors = append(
				out.Errors,
				fmt.Sprintf("playlist %s page %q: %v", playlistID, token, err),
			)
			return out
		}

		for _, item := range page.Items {
			id := item.ContentDetails.VideoId
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			out.Refs = append(out.Refs, refs.VideoRef{
				ID:  id,
				URL: "https://www.youtube.com/watch?v=" + id,
			})
			if len(out.Refs) >= limit {
				return out
			}
		}

		if page.NextPageToken == "" {
			return out
		}
		token = page.NextPageToken
	}
}

func (e *Expander) channel(ctx context.Context, channelURL string, limit int) Outcome {
	id, ok := refs.ChannelID(channelURL)
	if !ok {
		handle, hok := refs.ChannelHandle(channelURL)
		if !hok {
			return Outcome{
				Errors: []string{
					fmt.Sprintf("could not extract a channel id or handle from %q", channelURL),
				},
			}
		}

		resolved, err := e.Yt.ChannelIDByHandle(ctx, handle)
		if err != nil {
			return Outcome{
				Errors: []string{fmt.Sprintf("resolving channel handle @%s: %v", handle, err)},
			}
		}
		id = resolved
	}

	uploads, err := e.Yt.UploadsPlaylistID(ctx, id)
	if err != nil {
		return Outcome{
			Errors: []string{fmt.Sprintf("resolving uploads playlist of channel %s: %v", id, err)},
		}
	}

	return e.playlist(ctx, uploads, limit)
}
