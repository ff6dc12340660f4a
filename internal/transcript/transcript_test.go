package transcript_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jorikvm/tubescribe/internal/refs"
	"github.com/jorikvm/tubescribe/internal/transcript"
	"github.com/jorikvm/tubescribe/internal/tube"
)

func track(code, kind string) tube.Track {
	t := tube.Track{LanguageCode: code, Kind: kind}
	t.Name.SimpleText = code
	return t
}

func TestSelectTrack(t *testing.T) {
	t.Run("manual preferred over auto", func(t *testing.T) {
		tracks := []tube.Track{track("en", ""), track("en", "asr")}
		got, ok := transcript.SelectTrack(tracks, "")
		if !ok || got.IsAuto() {
			t.Errorf("got %+v ok=%v, want manual en", got, ok)
		}
	})

	t.Run("requested language falls back to auto", func(t *testing.T) {
		tracks := []tube.Track{track("en", "asr")}
		got, ok := transcript.SelectTrack(tracks, "en")
		if !ok || !got.IsAuto() || got.LanguageCode != "en" {
			t.Errorf("got %+v ok=%v, want auto en", got, ok)
		}
	})

	t.Run("requested manual wins over earlier manual", func(t *testing.T) {
		tracks := []tube.Track{track("nl", ""), track("de", "")}
		got, ok := transcript.SelectTrack(tracks, "de")
		if !ok || got.LanguageCode != "de" {
			t.Errorf("got %+v ok=%v, want de", got, ok)
		}
	})

	t.Run("base language matches regional track", func(t *testing.T) {
		tracks := []tube.Track{track("nl", ""), track("en-GB", "")}
		got, ok := transcript.SelectTrack(tracks, "en")
		if !ok || got.LanguageCode != "en-GB" {
			t.Errorf("got %+v ok=%v, want en-GB", got, ok)
		}
	})

	t.Run("unknown requested language falls back to first manual", func(t *testing.T) {
		tracks := []tube.Track{track("nl", "asr"), track("de", "")}
		got, ok := transcript.SelectTrack(tracks, "fr")
		if !ok || got.LanguageCode != "de" {
			t.Errorf("got %+v ok=%v, want de", got, ok)
		}
	})

	t.Run("auto only", func(t *testing.T) {
		tracks := []tube.Track{track("nl", "asr")}
		got, ok := transcript.SelectTrack(tracks, "")
		if !ok || got.LanguageCode != "nl" {
			t.Errorf("got %+v ok=%v, want nl", got, ok)
		}
	})

	t.Run("no tracks", func(t *testing.T) {
		if _, ok := transcript.SelectTrack(nil, "en"); ok {
			t.Error("selected a track from an empty list")
		}
	})
}

func TestRender(t *testing.T) {
	cues := []tube.Cue{
		{Start: 1.2, Text: " Hello world "},
		{Start: 62.5, Text: ""},
		{Start: 125, Text: "Two minutes in"},
		{Start: 3605, Text: "An hour &amp; counting"},
	}

	t.Run("plain", func(t *testing.T) {
		got := transcript.Render(cues, false)
		want := "Hello world\nTwo minutes in\nAn hour & counting"
		if got != want {
			t.Errorf("Render = %q, want %q", got, want)
		}
	})

	t.Run("timestamps", func(t *testing.T) {
		got := transcript.Render(cues, true)
		want := "[00:01] Hello world\n[02:05] Two minutes in\n[60:05] An hour & counting"
		if got != want {
			t.Errorf("Render = %q, want %q", got, want)
		}
	})
}

func TestClassify(t *testing.T) {
	cases := map[transcript.Kind]error{
		transcript.KindInvalidInput: fmt.Errorf("parse: %w", refs.ErrInvalidInput),
		transcript.KindUnavailable:  fmt.Errorf("video: %w", tube.ErrUnavailable),
		transcript.KindNoCaptions:   fmt.Errorf("video: %w", tube.ErrNoCaptions),
		transcript.KindTransient:    fmt.Errorf("fetch: %w", context.DeadlineExceeded),
	}
	for want, err := range cases {
		if got := transcript.Classify(err); got != want {
			t.Errorf("Classify(%v) = %q, want %q", err, got, want)
		}
	}
	if got := transcript.Classify(errors.New("boom")); got != transcript.KindTransient {
		t.Errorf("Classify(unknown) = %q, want transient", got)
	}
}

type stubSource struct {
	tracks    []tube.Track
	tracksErr error
	cues      []tube.Cue
	cuesErr   error
	title     string
}

func (s *stubSource) CaptionTracks(ctx context.Context, videoID string) ([]tube.Track, error) {
	return s.tracks, s.tracksErr
}

func (s *stubSource) Cues(ctx context.Context, t tube.Track) ([]tube.Cue, error) {
	return s.cues, s.cuesErr
}

func (s *stubSource) VideoTitle(ctx context.Context, videoID string) string {
	return s.title
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	ref := refs.VideoRef{ID: "dQw4w9WgXcQ", URL: "https://youtu.be/dQw4w9WgXcQ"}

	t.Run("success", func(t *testing.T) {
		f := transcript.Fetcher{Yt: &stubSource{
			tracks: []tube.Track{track("en", ""), track("nl", "asr")},
			cues:   []tube.Cue{{Start: 0, Text: "hi"}, {Start: 61, Text: "there"}},
			title:  "A Video",
		}}

		res, err := f.Fetch(ctx, ref, "", true)
		if err != nil {
			t.Fatal(err)
		}
		if res.Language != "en" {
			t.Errorf("Language = %q, want en", res.Language)
		}
		if res.Title != "A Video" {
			t.Errorf("Title = %q", res.Title)
		}
		if len(res.Tracks) != 2 {
			t.Errorf("Tracks = %d, want 2", len(res.Tracks))
		}
		if want := "[00:00] hi\n[01:01] there"; res.Text != want {
			t.Errorf("Text = %q, want %q", res.Text, want)
		}
		if !res.Timestamped {
			t.Error("Timestamped not set")
		}
	})

	t.Run("no captions", func(t *testing.T) {
		f := transcript.Fetcher{Yt: &stubSource{
			tracksErr: fmt.Errorf("video: %w", tube.ErrNoCaptions),
		}}
		_, err := f.Fetch(ctx, ref, "", false)
		if !errors.Is(err, tube.ErrNoCaptions) {
			t.Errorf("err = %v, want ErrNoCaptions", err)
		}
	})

	t.Run("empty track list", func(t *testing.T) {
		f := transcript.Fetcher{Yt: &stubSource{}}
		_, err := f.Fetch(ctx, ref, "en", false)
		if !errors.Is(err, tube.ErrNoCaptions) {
			t.Errorf("err = %v, want ErrNoCaptions", err)
		}
	})

	t.Run("cue download failure", func(t *testing.T) {
		f := transcript.Fetcher{Yt: &stubSource{
			tracks:  []tube.Track{track("en", "")},
			cuesErr: fmt.Errorf("captions file status code 500: %w", tube.ErrNotOk),
		}}
		_, err := f.Fetch(ctx, ref, "", false)
		if !errors.Is(err, tube.ErrNotOk) {
			t.Errorf("err = %v, want ErrNotOk", err)
		}
		if got := transcript.Classify(err); got != transcript.KindTransient {
			t.Errorf("Classify = %q, want transient", got)
		}
	})
}
