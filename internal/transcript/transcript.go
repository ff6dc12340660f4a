// Package transcript fetches and renders a single video's transcript,
// applying the language selection fallback policy. It also owns the failure
// taxonomy the rest of the pipeline reports in.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/jorikvm/tubescribe/internal/refs"
	"github.com/jorikvm/tubescribe/internal/tube"
)

// Kind buckets every failure the pipeline can produce.
type Kind string

const (
	// KindInvalidInput: unparsable URL or reference, the user must fix it.
	KindInvalidInput Kind = "invalid_input"
	// KindUnavailable: private, deleted or region-blocked video.
	KindUnavailable Kind = "video_unavailable"
	// KindNoCaptions: the video has no caption tracks at all.
	KindNoCaptions Kind = "no_captions"
	// KindTransient: network, quota or timeout. Re-running the batch later
	// may succeed; nothing is retried inline.
	KindTransient Kind = "transient"
)

// Classify buckets an error into the failure taxonomy. Anything it does not
// recognize (network errors, deadlines, quota, captcha) is transient.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, refs.ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, tube.ErrUnavailable), errors.Is(err, tube.ErrNotFound):
		return KindUnavailable
	case errors.Is(err, tube.ErrNoCaptions):
		return KindNoCaptions
	default:
		return KindTransient
	}
}

// Failure is one video that could not be fetched.
type Failure struct {
	Ref     refs.VideoRef
	Kind    Kind
	Message string
}

// Result is a successfully fetched transcript. Read-only once created.
type Result struct {
	Ref         refs.VideoRef
	Title       string // empty when no title could be resolved
	Language    string // code of the track actually used
	Tracks      []tube.Track
	Text        string
	Timestamped bool
}

// Source is the slice of the YouTube client the fetcher needs.
type Source interface {
	CaptionTracks(ctx context.Context, videoID string) ([]tube.Track, error)
	Cues(ctx context.Context, track tube.Track) ([]tube.Cue, error)
	VideoTitle(ctx context.Context, videoID string) string
}

type Fetcher struct {
	Yt Source
}

// Fetch retrieves and renders the transcript of one video. The returned
// error carries the failure kind, recoverable through Classify.
func (f *Fetcher) Fetch(
	ctx context.Context,
	ref refs.VideoRef,
	language string,
	timestamps bool,
) (*Result, error) {
	tracks, err := f.Yt.CaptionTracks(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("listing caption tracks of %q: %w", ref.ID, err)
	}

	track, ok := SelectTrack(tracks, language)
	if !ok {
		return nil, fmt.Errorf("video %q: %w", ref.ID, tube.ErrNoCaptions)
	}

	cues, err := f.Yt.Cues(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("downloading captions of %q: %w", ref.ID, err)
	}

	return &Result{
		Ref:         ref,
		Title:       f.Yt.VideoTitle(ctx, ref.ID),
		Language:    track.LanguageCode,
		Tracks:      tracks,
		Text:        Render(cues, timestamps),
		Timestamped: timestamps,
	}, nil
}

// SelectTrack picks the track to use: a manual track in the requested
// language wins, then an auto-generated one in that language, then the first
// manual track in platform order, then the first auto-generated track.
func SelectTrack(tracks []tube.Track, language string) (tube.Track, bool) {
	if language != "" {
		for _, t := range tracks {
			if !t.IsAuto() && matchesLanguage(t.LanguageCode, language) {
				return t, true
			}
		}
		for _, t := range tracks {
			if t.IsAuto() && matchesLanguage(t.LanguageCode, language) {
				return t, true
			}
		}
	}

	for _, t := range tracks {
		if !t.IsAuto() {
			return t, true
		}
	}

	if len(tracks) > 0 {
		return tracks[0], true
	}

	return tube.Track{}, false
}

// "en" should match "en-GB", but "en-GB" should not match "en-US".
func matchesLanguage(code, want string) bool {
	if strings.EqualFold(code, want) {
		return true
	}
	base, _, _ := strings.Cut(code, "-")
	return strings.EqualFold(base, want)
}

// Render joins cues into plain text, one line per cue. Lines are unescaped
// and trimmed, empty cues dropped. With timestamps each line is prefixed
// [MM:SS]; minutes keep counting past 59.
func Render(cues []tube.Cue, timestamps bool) string {
	b := strings.Builder{}
	for _, cue := range cues {
		txt := strings.TrimSpace(html.UnescapeString(cue.Text))
		if txt == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if timestamps {
			start := int(cue.Start)
			fmt.Fprintf(&b, "[%02d:%02d] ", start/60, start%60)
		}
		b.WriteString(txt)
	}
	return b.String()
}
