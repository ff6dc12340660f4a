// Package tube talks to YouTube: the Data API for playlist/channel listing
// and titles, the watch page for caption tracks, and the public oEmbed
// endpoint as the credential-free title fallback.
package tube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Overridable so tests can point the client at a local server.
var (
	EndpointChannels      = "https://youtube.googleapis.com/youtube/v3/channels"
	EndpointPlaylistItems = "https://www.googleapis.com/youtube/v3/playlistItems"
	EndpointSearch        = "https://www.googleapis.com/youtube/v3/search"
	EndpointVideos        = "https://www.googleapis.com/youtube/v3/videos"
	EndpointOEmbed        = "https://www.youtube.com/oembed"
	EndpointWatch         = "https://www.youtube.com/watch"
)

var (
	ErrNotOk           = errors.New("unexpected non 200 status code")
	ErrTooManyRequests = errors.New("too many requests")
	ErrNoCaptions      = errors.New("no caption tracks")
	ErrUnavailable     = errors.New("video unavailable")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrNotFound        = errors.New("not found")
	ErrNoKey           = errors.New("requires a YouTube API key (set YOUTUBE_API_KEY)")
)

// Client is a YouTube client. Key may be empty: caption retrieval and oEmbed
// titles work without it, playlist/channel listing does not.
//
// All requests share one rate limiter so bulk runs don't hammer YouTube and
// get us banned/blocked.
type Client struct {
	Key     string
	HTTP    *http.Client
	Limiter *rate.Limiter
}

func New(key string) *Client {
	return &Client{
		Key:     key,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}

	res, err := httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("reading response body: %w", err)
	}

	return body, res.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, code, err := c.get(ctx, path)
	if err != nil {
		return err
	}

	if code != http.StatusOK {
		if code == http.StatusForbidden {
			return ErrQuotaExceeded
		}
		return fmt.Errorf("status code %d: %q: %w", code, string(body), ErrNotOk)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshalling response to struct: %w", err)
	}
	return nil
}

// Track is one caption track of a video, in the order YouTube returns them.
type Track struct {
	BaseUrl string
	Name    struct {
		SimpleText string
	}
	LanguageCode string
	Kind         string
}

// IsAuto reports whether the track is auto-generated (speech recognition).
func (t *Track) IsAuto() bool {
	return t.Kind == "asr"
}

// DisplayName is the human readable track name, falling back to the code.
func (t *Track) DisplayName() string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	return t.LanguageCode
}

// More is returned, this just outlines what we actually use.
type resCaptionsList struct {
	PlayerCaptionsTracklistRenderer struct {
		CaptionTracks []Track
	}
}

// CaptionTracks scrapes the watch page for the video's caption track list,
// which YouTube embeds as a "captions" JSON blob in the player response.
//
// Fails with ErrNoCaptions when the video has no tracks, ErrUnavailable when
// the video is not playable and ErrTooManyRequests when YouTube serves a
// captcha instead of the page.
func (c *Client) CaptionTracks(ctx context.Context, videoID string) ([]Track, error) {
	body, code, err := c.get(ctx, EndpointWatch+"?v="+url.QueryEscape(videoID))
	if err != nil {
		return nil, fmt.Errorf("requesting watch page: %w", err)
	}
	content := string(body)

	if strings.Contains(content, `action="https://consent.youtube.com/s"`) {
		return nil, fmt.Errorf("video %q: got consent form: %w", videoID, ErrUnavailable)
	}

	if code != http.StatusOK {
		return nil, fmt.Errorf("watch page status code %d: %w", code, ErrNotOk)
	}

	split := strings.Split(content, `"captions":`)
	if len(split) <= 1 {
		if strings.Contains(content, `class="g-recaptcha"`) {
			return nil, fmt.Errorf("video %q got captcha: %w", videoID, ErrTooManyRequests)
		}

		if strings.Contains(content, `"playabilityStatus"`) &&
			strings.Contains(content, `"ERROR"`) {
			return nil, fmt.Errorf("video %q not playable: %w", videoID, ErrUnavailable)
		}

		return nil, fmt.Errorf("video %q has no captions json: %w", videoID, ErrNoCaptions)
	}

	rawCaptions := strings.ReplaceAll(strings.Split(split[1], `,"videoDetails`)[0], "\n", "")
	list := resCaptionsList{}
	if err := json.Unmarshal([]byte(rawCaptions), &list); err != nil {
		return nil, fmt.Errorf("could not unmarshal caption tracks %q: %w", rawCaptions, err)
	}

	tracks := list.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, fmt.Errorf("video %q: %w", videoID, ErrNoCaptions)
	}

	return tracks, nil
}

// Cue is one caption line with its start offset in seconds.
type Cue struct {
	Text  string  `xml:",chardata"`
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
}

type timedText struct {
	Cues []Cue `xml:"text"`
}

// Cues downloads and parses the timedtext XML of a caption track.
func (c *Client) Cues(ctx context.Context, track Track) ([]Cue, error) {
	body, code, err := c.get(ctx, track.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("captions request: %w", err)
	}

	if code != http.StatusOK {
		return nil, fmt.Errorf("captions file status code %d: %w", code, ErrNotOk)
	}

	tt := timedText{}
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("could not parse transcript xml %q: %w", body, err)
	}

	return tt.Cues, nil
}

type PlaylistPage struct {
	NextPageToken string
	Items         []PlaylistItem
}

type PlaylistItem struct {
	ContentDetails struct {
		VideoId string
	}
	Snippet struct {
		Title string
	}
}

// PlaylistPage retrieves one page (50 items) of a playlist through the Data
// API. Pass the previous page's NextPageToken to continue; an empty token
// starts at the beginning. Uses 1 quota.
func (c *Client) PlaylistPage(ctx context.Context, playlistID, token string) (*PlaylistPage, error) {
	if c.Key == "" {
		return nil, fmt.Errorf("playlist listing: %w", ErrNoKey)
	}

	path := fmt.Sprintf(
		"%s?part=contentDetails,snippet&playlistId=%s&key=%s&maxResults=50",
		EndpointPlaylistItems,
		url.QueryEscape(playlistID),
		c.Key,
	)
	if token != "" {
		path += "&pageToken=" + url.QueryEscape(token)
	}

	page := PlaylistPage{}
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("retrieving playlist %q videos: %w", playlistID, err)
	}

	return &page, nil
}

// UploadsPlaylistID resolves a channel id to its uploads playlist, which
// lists every public video of the channel in upload order. Uses 1 quota.
func (c *Client) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	if c.Key == "" {
		return "", fmt.Errorf("channel listing: %w", ErrNoKey)
	}

	var res struct {
		Items []struct {
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string
				}
			}
		}
	}
	path := fmt.Sprintf(
		"%s?part=contentDetails&id=%s&key=%s",
		EndpointChannels,
		url.QueryEscape(channelID),
		c.Key,
	)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return "", fmt.Errorf("retrieving channel info for %q: %w", channelID, err)
	}

	if len(res.Items) == 0 {
		return "", fmt.Errorf("channel %q: %w", channelID, ErrNotFound)
	}

	return res.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// ChannelIDByHandle resolves an @handle to a channel id through the search
// endpoint. Expensive (100 quota) but handles have no direct lookup in v3.
func (c *Client) ChannelIDByHandle(ctx context.Context, handle string) (string, error) {
	if c.Key == "" {
		return "", fmt.Errorf("handle lookup: %w", ErrNoKey)
	}

	var res struct {
		Items []struct {
			Snippet struct {
				ChannelId string
			}
		}
	}
	path := fmt.Sprintf(
		"%s?part=snippet&type=channel&q=%s&maxResults=1&key=%s",
		EndpointSearch,
		url.QueryEscape("@"+handle),
		c.Key,
	)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return "", fmt.Errorf("resolving handle @%s: %w", handle, err)
	}

	if len(res.Items) == 0 || res.Items[0].Snippet.ChannelId == "" {
		return "", fmt.Errorf("handle @%s: %w", handle, ErrNotFound)
	}

	return res.Items[0].Snippet.ChannelId, nil
}

// VideoTitle looks up the video title, through the Data API when a key is
// configured and falling back to the public oEmbed endpoint. Best effort: an
// empty result means no title could be resolved, which is never fatal.
func (c *Client) VideoTitle(ctx context.Context, videoID string) string {
	if c.Key != "" {
		var res struct {
			Items []struct {
				Snippet struct {
					Title string
				}
			}
		}
		path := fmt.Sprintf(
			"%s?part=snippet&id=%s&key=%s",
			EndpointVideos,
			url.QueryEscape(videoID),
			c.Key,
		)
		if err := c.getJSON(ctx, path, &res); err != nil {
			log.Printf("[WARN]: videos lookup for %q: %v", videoID, err)
		} else if len(res.Items) > 0 {
			if title := strings.TrimSpace(res.Items[0].Snippet.Title); title != "" {
				return title
			}
		}
	}

	var res struct {
		Title string
	}
	path := fmt.Sprintf(
		"%s?url=%s&format=json",
		EndpointOEmbed,
		url.QueryEscape("https://www.youtube.com/watch?v="+videoID),
	)
	if err := c.getJSON(ctx, path, &res); err != nil {
		log.Printf("[WARN]: oembed lookup for %q: %v", videoID, err)
		return ""
	}

	return strings.TrimSpace(res.Title)
}
