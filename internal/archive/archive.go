// Package archive packs successful transcripts into a zip, one .txt entry
// per video, plus an errors_report.txt manifest when anything failed.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/jorikvm/tubescribe/internal/transcript"
)

// ReportEntry is the archive entry listing per-video failures and expansion
// errors, so clients get the error report without parsing anything but the
// zip they asked for.
const ReportEntry = "errors_report.txt"

const maxNameLen = 120

// Write streams the transcripts into w as a zip archive. Entries are named
// after the sanitized video title (the video id when no title resolved) with
// colliding names disambiguated as "name-2", "name-3", ... in encounter
// order. Entry bodies are exactly the transcript text, UTF-8.
//
// Entries are written incrementally; only one transcript's compression state
// is held besides the inputs themselves.
func Write(
	w io.Writer,
	results []*transcript.Result,
	failures []transcript.Failure,
	expansionErrors []string,
) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	used := map[string]int{}
	for _, res := range results {
		name := EntryName(res, used)
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("creating archive entry %q: %w", name, err)
		}
		if _, err := io.WriteString(f, res.Text); err != nil {
			return fmt.Errorf("writing archive entry %q: %w", name, err)
		}
	}

	if len(failures) > 0 || len(expansionErrors) > 0 {
		f, err := zw.Create(ReportEntry)
		if err != nil {
			return fmt.Errorf("creating error report entry: %w", err)
		}
		if _, err := io.WriteString(f, Report(failures, expansionErrors)); err != nil {
			return fmt.Errorf("writing error report entry: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	return nil
}

// Report renders the error report body: one line per failed video, then one
// [expand] prefixed line per expansion error.
func Report(failures []transcript.Failure, expansionErrors []string) string {
	b := strings.Builder{}
	for _, fail := range failures {
		id := fail.Ref.ID
		if id == "" {
			id = fail.Ref.URL
		}
		fmt.Fprintf(&b, "%s: %s\n", id, fail.Message)
	}
	for _, e := range expansionErrors {
		fmt.Fprintf(&b, "[expand] %s\n", e)
	}
	return b.String()
}

// EntryName returns the collision-free entry name for a result, recording
// the base name in used.
func EntryName(res *transcript.Result, used map[string]int) string {
	base := Sanitize(res.Title)
	if base == "" {
		base = res.Ref.ID
	}
	if base == "" {
		base = "transcript"
	}

	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s-%d.txt", base, n)
	}
	return base + ".txt"
}

// Sanitize strips characters that are illegal in common filesystems and caps
// the length (in runes, to not cut a multi-byte title mid-character).
func Sanitize(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)

	if runes := []rune(cleaned); len(runes) > maxNameLen {
		cleaned = string(runes[:maxNameLen])
	}
	return cleaned
}
