// Package server exposes the transcript service over HTTP: a single-video
// JSON endpoint, the bulk zip endpoint and the static frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jorikvm/tubescribe/internal/bulk"
	"github.com/jorikvm/tubescribe/internal/refs"
	"github.com/jorikvm/tubescribe/internal/transcript"
)

// Runner runs a bulk job; *bulk.Runner in production.
type Runner interface {
	Run(ctx context.Context, req bulk.Request) (*bulk.Report, error)
}

var (
	Fetch bulk.Fetcher
	Bulk  Runner

	Port      = ":8000"
	StaticDir = "frontend"
)

type transcriptRequest struct {
	URL               string `json:"url"`
	Language          string `json:"language"`
	IncludeTimestamps bool   `json:"include_timestamps"`
}

type languageInfo struct {
	Language     string `json:"language"`
	LanguageCode string `json:"language_code"`
	IsGenerated  bool   `json:"is_generated"`
}

type transcriptResponse struct {
	Transcript         string         `json:"transcript"`
	VideoTitle         string         `json:"video_title,omitempty"`
	LanguageUsed       string         `json:"language_used"`
	AvailableLanguages []languageInfo `json:"available_languages"`
}

type bulkRequest struct {
	// Free-form input, classified into one of the shapes below.
	Inputs string `json:"inputs"`

	URLs        []string `json:"urls"`
	PlaylistURL string   `json:"playlist_url"`
	ChannelURL  string   `json:"channel_url"`

	Limit             int    `json:"limit"`
	Language          string `json:"language"`
	IncludeTimestamps bool   `json:"include_timestamps"`
}

// New builds the fiber app. Errors are rendered as {"detail": "..."} JSON.
func New() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
		},
	})

	app.Post("/api/transcript", handleTranscript)
	app.Post("/api/bulk-transcripts", handleBulk)

	if _, err := os.Stat(StaticDir); err == nil {
		app.Static("/", StaticDir)
	} else {
		log.Printf("[WARN]: static dir %q not found, serving API only", StaticDir)
	}

	return app
}

func Start() error {
	log.Printf("[INFO]: listening on %s", Port)
	return New().Listen(Port)
}

func handleTranscript(c *fiber.Ctx) error {
	req := transcriptRequest{}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	ref, err := refs.ParseRef(req.URL)
	if err != nil {
		log.Printf("[WARN]: invalid url %q: %v", req.URL, err)
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := Fetch.Fetch(c.Context(), ref, strings.TrimSpace(req.Language), req.IncludeTimestamps)
	if err != nil {
		log.Printf("[ERROR]: fetching transcript of %q: %v", ref.ID, err)
		status := http.StatusNotFound
		if transcript.Classify(err) == transcript.KindTransient {
			status = http.StatusBadGateway
		}
		return fiber.NewError(status, err.Error())
	}

	languages := make([]languageInfo, 0, len(res.Tracks))
	for _, t := range res.Tracks {
		t := t
		languages = append(languages, languageInfo{
			Language:     t.DisplayName(),
			LanguageCode: t.LanguageCode,
			IsGenerated:  t.IsAuto(),
		})
	}
	sort.Slice(languages, func(i, j int) bool {
		return languages[i].Language < languages[j].Language
	})

	return c.JSON(transcriptResponse{
		Transcript:         res.Text,
		VideoTitle:         res.Title,
		LanguageUsed:       res.Language,
		AvailableLanguages: languages,
	})
}

// handleBulk answers with the zip archive. As long as at least one video
// resolved the response is a 200, even when every fetch failed: failure
// details travel out-of-band in the X-Transcripts-Failed header and the
// errors_report.txt entry inside the archive.
func handleBulk(c *fiber.Ctx) error {
	req := bulkRequest{}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	src, err := sourceOf(req)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	report, err := Bulk.Run(c.Context(), bulk.Request{
		Source:            src,
		Limit:             req.Limit,
		Language:          strings.TrimSpace(req.Language),
		IncludeTimestamps: req.IncludeTimestamps,
	})
	if err != nil {
		var ntf *bulk.NothingToFetchError
		if errors.As(err, &ntf) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"detail": "No videos to process. Provide valid video URLs or set " +
					"YOUTUBE_API_KEY for playlist/channel expansion.",
				"expansion_errors": ntf.ExpansionErrors,
			})
		}

		log.Printf("[ERROR]: bulk run: %v", err)
		return fiber.NewError(http.StatusInternalServerError, "bulk fetch failed")
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transcripts.zip"`)
	c.Set("X-Transcripts-Succeeded", strconv.Itoa(report.Succeeded))
	c.Set("X-Transcripts-Failed", strconv.Itoa(len(report.Failed)))
	return c.Send(report.Archive)
}

func sourceOf(req bulkRequest) (refs.Source, error) {
	if strings.TrimSpace(req.Inputs) != "" {
		return refs.Classify(req.Inputs)
	}

	var (
		src refs.Source
		set int
	)
	if len(req.URLs) > 0 {
		src, set = refs.SourceURLs(req.URLs), set+1
	}
	if req.PlaylistURL != "" {
		src, set = refs.SourcePlaylist(req.PlaylistURL), set+1
	}
	if req.ChannelURL != "" {
		src, set = refs.SourceChannel(req.ChannelURL), set+1
	}

	switch {
	case set == 0:
		return nil, fmt.Errorf("provide urls, playlist_url, channel_url or inputs: %w",
			refs.ErrInvalidInput)
	case set > 1:
		return nil, fmt.Errorf("provide exactly one of urls, playlist_url and channel_url: %w",
			refs.ErrInvalidInput)
	}
	return src, nil
}
