package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/nao1215/bakinscan/internal/clock"
	"github.com/nao1215/bakinscan/internal/model"
)

// FileSource serves pages from HTML files saved in a local directory.
// A URL maps to the file named after the last path segment, so
// ".../class_yukar_1_1_engine.html" is read from
// "<dir>/class_yukar_1_1_engine.html".
//
// Design decision: We keep the mapping to plain base names because:
//  1. The reference site uses globally unique page file names
//  2. A flat directory is trivial to populate with curl or a browser
//  3. Re-extraction after parser changes needs no network at all
type FileSource struct {
	// dir is the directory holding the saved HTML files.
	dir string

	// clk supplies the FetchedAt timestamps.
	clk clock.Clock

	// logger receives per-file debug lines.
	logger *slog.Logger
}

// FileSourceOption configures a FileSource.
type FileSourceOption func(*FileSource)

// WithFileSourceClock sets the time source for FetchedAt timestamps.
func WithFileSourceClock(clk clock.Clock) FileSourceOption {
	return func(s *FileSource) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// WithFileSourceLogger sets the logger for per-file diagnostics.
func WithFileSourceLogger(logger *slog.Logger) FileSourceOption {
	return func(s *FileSource) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileSource creates a FileSource reading from the given directory.
func NewFileSource(dir string, opts ...FileSourceOption) *FileSource {
	s := &FileSource{
		dir:    dir,
		clk:    clock.NewSystem(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch reads the saved file for the URL. A missing file is reported as
// a not-found failure, mirroring what the live server would answer.
func (s *FileSource) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := fileNameForURL(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNotFound, Err: err}
	}

	filePath := filepath.Join(s.dir, name)
	body, err := os.ReadFile(filePath) //nolint:gosec // Reading from the user-chosen cache directory is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{URL: rawURL, Kind: model.ErrorKindNotFound, Err: err}
		}
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindStorage, Err: err}
	}

	s.logger.Debug("page loaded from cache", "url", rawURL, "file", filePath, "bytes", len(body))

	page := &model.Page{
		URL:         rawURL,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        body,
		FetchedAt:   s.clk.Now(),
		Attempts:    1,
	}
	page.Truncate(model.MaxBodySize)
	page.ComputeHash()
	return page, nil
}

// fileNameForURL derives the cache file name from the URL's last path
// segment.
func fileNameForURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		name = "index.html"
	}
	return name, nil
}
