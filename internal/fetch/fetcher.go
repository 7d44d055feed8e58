package fetch

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/nao1215/bakinscan/internal/clock"
	"github.com/nao1215/bakinscan/internal/model"
)

// maxRetryDelay caps the exponential backoff so a generous retry budget
// cannot produce minute-long sleeps.
const maxRetryDelay = 10 * time.Second

// Source produces pages for the crawl pipeline. The network Fetcher is
// the production implementation; FileSource serves saved pages for
// offline re-extraction and tests.
type Source interface {
	// Fetch retrieves the page at the given absolute URL. A nil error
	// means the page was retrieved and decoded; a *fetch.Error carries
	// the failure classification otherwise.
	Fetch(ctx context.Context, rawURL string) (*model.Page, error)
}

// Fetcher retrieves pages over HTTP with shared request pacing and
// classified retries.
//
// Design decision: We require an external *http.Client because:
//  1. Transport configuration (proxies, TLS) stays out of this package
//  2. Tests inject httptest server clients without extra knobs
//  3. One client is shared across every worker, pooling connections
type Fetcher struct {
	// client is the HTTP client shared by all workers.
	client *http.Client

	// limiter paces requests. All attempts from all workers pass through
	// it, retries included. Nil disables pacing.
	limiter *rate.Limiter

	// clk supplies time for backoff waits so tests can fast-forward.
	clk clock.Clock

	// logger receives per-attempt debug and warning lines.
	logger *slog.Logger

	// timeout bounds each individual attempt.
	timeout time.Duration

	// maxRetries is how many extra attempts a retryable failure gets.
	maxRetries int

	// baseDelay is the backoff before the first retry, doubled for each
	// further retry.
	baseDelay time.Duration

	// userAgent is sent with every request.
	userAgent string

	// headers are extra headers applied after the defaults.
	headers map[string]string

	// maxBodySize caps how many body bytes are read per response.
	maxBodySize int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxRetries sets how many extra attempts a retryable failure gets.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithRetryBaseDelay sets the backoff before the first retry.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.baseDelay = d
		}
	}
}

// WithRequestInterval sets the minimum spacing between any two requests.
// Zero disables pacing.
func WithRequestInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			f.limiter = nil
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size to read.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithClock sets the time source used for backoff waits.
func WithClock(clk clock.Clock) Option {
	return func(f *Fetcher) {
		if clk != nil {
			f.clk = clk
		}
	}
}

// WithLogger sets the logger for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher with the given HTTP client.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		clk:         clock.NewSystem(),
		logger:      slog.Default(),
		timeout:     30 * time.Second,
		maxRetries:  3,
		baseDelay:   1 * time.Second,
		userAgent:   "bakinscan/2.0 (+https://github.com/nao1215/bakinscan)",
		maxBodySize: model.MaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves the page at rawURL, retrying retryable failures until
// the budget is spent. Every attempt, retries included, waits for the
// shared request gate first.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	var lastErr *Error

	for attempt := 1; attempt <= f.maxRetries+1; attempt++ {
		if attempt > 1 {
			if err := f.waitBackoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		page, fetchErr := f.attempt(ctx, rawURL)
		if fetchErr == nil {
			page.Attempts = attempt
			f.logger.Debug("page fetched",
				"url", rawURL,
				"status", page.StatusCode,
				"bytes", len(page.Body),
				"attempt", attempt,
			)
			return page, nil
		}

		fetchErr.Attempts = attempt
		lastErr = fetchErr

		if !fetchErr.Kind.Retryable() {
			f.logger.Debug("fetch failed terminally",
				"url", rawURL,
				"kind", fetchErr.Kind.String(),
				"status", fetchErr.StatusCode,
			)
			return nil, fetchErr
		}

		f.logger.Warn("fetch attempt failed",
			"url", rawURL,
			"attempt", attempt,
			"status", fetchErr.StatusCode,
			"error", fetchErr.Err,
		)
	}

	return nil, lastErr
}

// attempt performs one HTTP request with its own timeout.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) (*model.Page, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		// A URL the transport cannot even form a request for will never
		// succeed, so it is terminal rather than retryable.
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNotFound, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNetwork, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on a response body

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to body handling
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNotFound, StatusCode: resp.StatusCode}
	case retryableStatus(resp.StatusCode):
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNetwork, StatusCode: resp.StatusCode}
	default:
		// Other client errors mean the URL is not servable for us; they
		// share the not-found handling, with the status kept for the
		// summary.
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNotFound, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := decodeBody(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: model.ErrorKindNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	page := &model.Page{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
		FetchedAt:   f.clk.Now(),
	}
	page.ComputeHash()
	return page, nil
}

// waitBackoff sleeps before the given retry, doubling the base delay
// each time and adding jitter so concurrent failures spread out. The
// wait is cut short when the context ends.
func (f *Fetcher) waitBackoff(ctx context.Context, retry int) error {
	if f.baseDelay <= 0 {
		return nil
	}

	delay := f.baseDelay << (retry - 1)
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	if half := f.baseDelay / 2; half > 0 {
		delay += rand.N(half)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.clk.After(delay):
		return nil
	}
}

// retryableStatus reports whether the HTTP status is worth another
// attempt: server errors and explicit throttling.
func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// decodeBody reads the body and converts it to UTF-8 according to the
// declared or sniffed character set. Reference pages declare UTF-8, but
// the conversion also tolerates mislabeled legacy encodings.
func decodeBody(r io.Reader, contentType string) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		// Undecodable bytes: keep the raw body rather than lose the page.
		return raw, nil
	}
	return decoded, nil
}
