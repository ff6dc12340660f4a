package refs_test

import (
	"errors"
	"testing"

	"github.com/jorikvm/tubescribe/internal/refs"
)

func TestParseVideoID(t *testing.T) {
	valid := map[string]string{
		"watch":       "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"watch extra": "https://www.youtube.com/watch?app=desktop&v=dQw4w9WgXcQ&t=10s",
		"short link":  "https://youtu.be/dQw4w9WgXcQ",
		"embed":       "https://www.youtube.com/embed/dQw4w9WgXcQ",
		"shorts":      "https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"bare id":     "dQw4w9WgXcQ",
		"whitespace":  "  https://youtu.be/dQw4w9WgXcQ  ",
	}
	for name, url := range valid {
		url := url
		t.Run(name, func(t *testing.T) {
			id, err := refs.ParseVideoID(url)
			if err != nil {
				t.Fatalf("ParseVideoID(%q): %v", url, err)
			}
			if id != "dQw4w9WgXcQ" {
				t.Errorf("ParseVideoID(%q) = %q, want dQw4w9WgXcQ", url, id)
			}
		})
	}

	invalid := map[string]string{
		"empty":        "",
		"not youtube":  "https://example.com",
		"too short id": "abc",
	}
	for name, url := range invalid {
		url := url
		t.Run(name, func(t *testing.T) {
			if _, err := refs.ParseVideoID(url); !errors.Is(err, refs.ErrInvalidInput) {
				t.Errorf("ParseVideoID(%q) err = %v, want ErrInvalidInput", url, err)
			}
		})
	}
}

func TestPlaylistAndChannelParsing(t *testing.T) {
	if id, ok := refs.PlaylistID("https://www.youtube.com/playlist?list=PLabc_-123"); !ok ||
		id != "PLabc_-123" {
		t.Errorf("PlaylistID = %q, %v", id, ok)
	}
	if _, ok := refs.PlaylistID("https://www.youtube.com/watch?v=dQw4w9WgXcQ"); ok {
		t.Error("PlaylistID matched a plain watch url")
	}

	channelURL := "https://www.youtube.com/channel/UCd3dNckv1Za2coSaHGHl5aA"
	if id, ok := refs.ChannelID(channelURL); !ok || id != "UCd3dNckv1Za2coSaHGHl5aA" {
		t.Errorf("ChannelID = %q, %v", id, ok)
	}

	if h, ok := refs.ChannelHandle("https://www.youtube.com/@veritasium/videos"); !ok ||
		h != "veritasium" {
		t.Errorf("ChannelHandle = %q, %v", h, ok)
	}
	if h, ok := refs.ChannelHandle("@veritasium"); !ok || h != "veritasium" {
		t.Errorf("ChannelHandle bare = %q, %v", h, ok)
	}
}

func TestClassify(t *testing.T) {
	t.Run("playlist wins", func(t *testing.T) {
		src, err := refs.Classify("https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLxyz")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := src.(refs.SourcePlaylist); !ok {
			t.Errorf("got %T, want SourcePlaylist", src)
		}
	})

	t.Run("channel id", func(t *testing.T) {
		src, err := refs.Classify("https://www.youtube.com/channel/UCd3dNckv1Za2coSaHGHl5aA")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := src.(refs.SourceChannel); !ok {
			t.Errorf("got %T, want SourceChannel", src)
		}
	})

	t.Run("handle", func(t *testing.T) {
		src, err := refs.Classify("@veritasium")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := src.(refs.SourceChannel); !ok {
			t.Errorf("got %T, want SourceChannel", src)
		}
	})

	t.Run("url list", func(t *testing.T) {
		src, err := refs.Classify("https://youtu.be/aaaaaaaaaaa, https://youtu.be/bbbbbbbbbbb\nhttps://youtu.be/ccccccccccc")
		if err != nil {
			t.Fatal(err)
		}
		urls, ok := src.(refs.SourceURLs)
		if !ok {
			t.Fatalf("got %T, want SourceURLs", src)
		}
		if len(urls) != 3 {
			t.Errorf("got %d urls, want 3: %v", len(urls), urls)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := refs.Classify("  , \n "); !errors.Is(err, refs.ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
}
