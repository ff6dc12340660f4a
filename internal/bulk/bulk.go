// Package bulk orchestrates the expansion-fetch-archive pipeline: resolve a
// source to video refs, fetch every transcript under a bounded worker count,
// pack the successes into a zip and report the failures next to it.
package bulk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jorikvm/tubescribe/internal/archive"
	"github.com/jorikvm/tubescribe/internal/expand"
	"github.com/jorikvm/tubescribe/internal/refs"
	"github.com/jorikvm/tubescribe/internal/transcript"
)

var (
	// FetchRoutines caps concurrent transcript fetches. Have to be careful
	// with this so we don't get banned/blocked by YouTube.
	FetchRoutines = 5

	// FetchTimeout bounds a single video fetch so one stuck download can't
	// stall the whole batch.
	FetchTimeout = time.Minute

	DefaultLimit = 50
	MaxLimit     = 1000
)

// Request is one bulk transcript job. Exactly one source variant is set.
type Request struct {
	Source            refs.Source
	Limit             int
	Language          string
	IncludeTimestamps bool
}

// Report is the outcome of a bulk run. Per-video failures never abort the
// run; they ride along next to the archive. Always:
// Succeeded + len(Failed) == number of refs the source resolved to.
type Report struct {
	Archive         []byte
	Succeeded       int
	Failed          []transcript.Failure
	ExpansionErrors []string
}

// ErrNothingToFetch means the source resolved to zero videos.
var ErrNothingToFetch = errors.New("nothing to fetch")

// NothingToFetchError carries the expansion errors verbatim so the caller
// can tell the user why nothing resolved.
type NothingToFetchError struct {
	ExpansionErrors []string
}

func (e *NothingToFetchError) Error() string {
	return fmt.Sprintf("nothing to fetch (%d expansion errors)", len(e.ExpansionErrors))
}

func (e *NothingToFetchError) Unwrap() error {
	return ErrNothingToFetch
}

// Fetcher fetches a single video transcript.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		ref refs.VideoRef,
		language string,
		timestamps bool,
	) (*transcript.Result, error)
}

// Expander resolves playlist/channel references into video refs.
type Expander interface {
	Expand(ctx context.Context, src refs.Source, limit int) expand.Outcome
}

type Runner struct {
	Fetch  Fetcher
	Expand Expander
}

// Run executes the whole pipeline. It only errors when zero videos could be
// resolved (NothingToFetchError) or the archive itself cannot be written;
// every per-video failure ends up in the report instead.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	list, failed, expErrors := r.resolve(ctx, req.Source, limit)
	if len(list) > limit {
		list = list[:limit]
	}

	if len(list) == 0 {
		for _, fail := range failed {
			expErrors = append(expErrors, fmt.Sprintf("%s: %s", fail.Ref.URL, fail.Message))
		}
		return nil, &NothingToFetchError{ExpansionErrors: expErrors}
	}

	log.Printf("[INFO]: fetching %d transcripts with %d workers", len(list), FetchRoutines)

	var (
		group   errgroup.Group
		mu      sync.Mutex
		results []*transcript.Result
	)
	group.SetLimit(FetchRoutines)
	for _, ref := range list {
		ref := ref
		group.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, FetchTimeout)
			defer cancel()

			res, err := r.Fetch.Fetch(fctx, ref, req.Language, req.IncludeTimestamps)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[WARN]: fetching %q: %v", ref.ID, err)
				failed = append(failed, transcript.Failure{
					Ref:     ref,
					Kind:    transcript.Classify(err),
					Message: err.Error(),
				})
				return nil
			}

			results = append(results, res)
			return nil
		})
	}
	// Workers record failures instead of returning errors.
	_ = group.Wait()

	log.Printf("[INFO]: fetched %d transcripts, %d failures", len(results), len(failed))

	buf := bytes.Buffer{}
	if err := archive.Write(&buf, results, failed, expErrors); err != nil {
		return nil, fmt.Errorf("building archive: %w", err)
	}

	return &Report{
		Archive:         buf.Bytes(),
		Succeeded:       len(results),
		Failed:          failed,
		ExpansionErrors: expErrors,
	}, nil
}

// resolve turns the source into video refs. Explicit URL lists are converted
// without network access, each bad entry becoming one InvalidInput failure;
// playlists and channels go through the expander.
func (r *Runner) resolve(
	ctx context.Context,
	src refs.Source,
	limit int,
) (list []refs.VideoRef, failed []transcript.Failure, expErrors []string) {
	urls, ok := src.(refs.SourceURLs)
	if !ok {
		out := r.Expand.Expand(ctx, src, limit)
		return out.Refs, nil, out.Errors
	}

	seen := map[string]struct{}{}
	for _, raw := range urls {
		ref, err := refs.ParseRef(raw)
		if err != nil {
			failed = append(failed, transcript.Failure{
				Ref:     refs.VideoRef{URL: raw},
				Kind:    transcript.Classify(err),
				Message: err.Error(),
			})
			continue
		}

		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}

		if len(list) < limit {
			list = append(list, ref)
		}
	}

	return list, failed, nil
}
