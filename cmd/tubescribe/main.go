package main

import (
	"log"
	"os"

	"github.com/jorikvm/tubescribe/internal/bulk"
	"github.com/jorikvm/tubescribe/internal/expand"
	"github.com/jorikvm/tubescribe/internal/server"
	"github.com/jorikvm/tubescribe/internal/transcript"
	"github.com/jorikvm/tubescribe/internal/tube"
)

var (
	ytKey = os.Getenv("YOUTUBE_API_KEY")
	port  = os.Getenv("PORT")
)

func main() {
	if ytKey == "" {
		ytKey = os.Getenv("YT_API_KEY")
	}
	if ytKey == "" {
		log.Println(
			"[WARN]: no YOUTUBE_API_KEY set, playlist/channel expansion and API title lookup are disabled",
		)
	}

	yt := tube.New(ytKey)
	fetcher := &transcript.Fetcher{Yt: yt}

	server.Fetch = fetcher
	server.Bulk = &bulk.Runner{
		Fetch:  fetcher,
		Expand: &expand.Expander{Yt: yt},
	}

	if port != "" {
		server.Port = ":" + port
	}

	log.Fatal(server.Start())
}
