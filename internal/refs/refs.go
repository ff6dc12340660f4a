package refs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// VideoRef is a resolved video id together with the raw input it came from.
type VideoRef struct {
	ID  string
	URL string
}

// WatchURL returns the canonical watch page URL for the ref.
func (r VideoRef) WatchURL() string {
	if r.URL != "" {
		return r.URL
	}
	return "https://www.youtube.com/watch?v=" + r.ID
}

var ErrInvalidInput = errors.New("invalid input")

// The shapes YouTube hands out video ids in: watch urls, youtu.be short
// links, embeds, shorts, or a bare 11 character id.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`embed/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`shorts/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`),
}

var (
	playlistRe = regexp.MustCompile(`[?&]list=([0-9A-Za-z_-]+)`)
	channelRe  = regexp.MustCompile(`/channel/(UC[0-9A-Za-z_-]{22})`)
	handleRe   = regexp.MustCompile(`(?:/|^)@([A-Za-z0-9._-]+)`)
)

// ParseVideoID extracts the video id from a URL, or returns the id itself
// when given one directly.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url: %w", ErrInvalidInput)
	}

	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("no video id in %q: %w", raw, ErrInvalidInput)
}

// ParseRef parses raw into a VideoRef, keeping the original input around for
// error reporting.
func ParseRef(raw string) (VideoRef, error) {
	id, err := ParseVideoID(raw)
	if err != nil {
		return VideoRef{}, err
	}
	return VideoRef{ID: id, URL: strings.TrimSpace(raw)}, nil
}

// PlaylistID extracts the list= query parameter from a playlist or watch URL.
func PlaylistID(raw string) (string, bool) {
	if m := playlistRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}

// ChannelID extracts a /channel/UC... id from a channel URL.
func ChannelID(raw string) (string, bool) {
	if m := channelRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}

// ChannelHandle extracts an @handle from a channel URL or a bare "@handle".
func ChannelHandle(raw string) (string, bool) {
	if m := handleRe.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		return m[1], true
	}
	return "", false
}

// Source is what a bulk input turned out to reference.
// Exactly one implementation is produced per input.
type Source interface {
	isSource()
}

// SourceURLs is an explicit list of video URLs or ids.
type SourceURLs []string

// SourcePlaylist is a playlist reference (URL containing a list= parameter).
type SourcePlaylist string

// SourceChannel is a channel reference (/channel/UC... URL or @handle).
type SourceChannel string

func (SourceURLs) isSource()     {}
func (SourcePlaylist) isSource() {}
func (SourceChannel) isSource()  {}

// Classify decides what kind of reference a free-form bulk input is.
// A playlist parameter wins over channel shapes, anything else is treated as
// a list of video URLs split on whitespace and commas. No network calls.
func Classify(input string) (Source, error) {
	trimmed := strings.TrimSpace(input)
	if _, ok := PlaylistID(trimmed); ok {
		return SourcePlaylist(trimmed), nil
	}
	if _, ok := ChannelID(trimmed); ok {
		return SourceChannel(trimmed), nil
	}
	if _, ok := ChannelHandle(trimmed); ok {
		return SourceChannel(trimmed), nil
	}

	urls := SplitURLs(input)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no urls in input: %w", ErrInvalidInput)
	}
	return SourceURLs(urls), nil
}

// SplitURLs splits a pasted blob of URLs on whitespace and commas, dropping
// empty pieces.
func SplitURLs(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
