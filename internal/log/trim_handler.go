package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultMaxAttrLen is the length limit applied to ordinary string
// attributes.
const DefaultMaxAttrLen = 256

// rawHTMLMaxLen is the much tighter limit applied to attributes that are
// known to carry raw page markup.
const rawHTMLMaxLen = 64

// rawHTMLKeys contains attribute keys whose values are raw page markup.
// These values are useful as a short prefix and useless at full length.
var rawHTMLKeys = map[string]bool{
	"body":    true,
	"html":    true,
	"snippet": true,
	"content": true,
}

// maskedValue replaces sensitive attribute values in log output.
const maskedValue = "[MASKED]"

// sensitiveKeys contains attribute keys whose values must never reach
// the log output. Site profiles can carry auth headers and cookies.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"api-key":       true,
	"apikey":        true,
	"token":         true,
}

// TrimHandler wraps an slog.Handler to keep attribute values short and
// free of credentials. It intercepts log records, masks sensitive
// values, cuts oversized string values, and compacts URLs under the
// crawl root before passing the record on.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Callers keep logging full values and the policy stays in one place
type TrimHandler struct {
	// handler is the underlying slog handler that receives trimmed records.
	handler slog.Handler

	// maxLen is the limit for ordinary string attributes.
	maxLen int

	// rootURL, when set, is stripped from URL attribute values so lines
	// show the page path instead of repeating the site prefix.
	rootURL string
}

// TrimHandlerOption configures a TrimHandler.
type TrimHandlerOption func(*TrimHandler)

// WithMaxAttrLen overrides the limit for ordinary string attributes.
// Non-positive values keep the default.
func WithMaxAttrLen(n int) TrimHandlerOption {
	return func(h *TrimHandler) {
		if n > 0 {
			h.maxLen = n
		}
	}
}

// WithRootURL makes the handler shorten URL attributes under the given
// crawl root to their relative path.
func WithRootURL(root string) TrimHandlerOption {
	return func(h *TrimHandler) {
		h.rootURL = strings.TrimSuffix(root, "/")
	}
}

// NewTrimHandler creates a new TrimHandler wrapping the given handler.
// If handler is nil, the returned TrimHandler uses slog.Default().Handler().
func NewTrimHandler(handler slog.Handler, opts ...TrimHandlerOption) *TrimHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &TrimHandler{
		handler: handler,
		maxLen:  DefaultMaxAttrLen,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TrimHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle trims the record's attributes and passes it to the underlying
// handler.
func (h *TrimHandler) Handle(ctx context.Context, r slog.Record) error {
	trimmed := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		trimmed.AddAttrs(h.trimAttr(a))
		return true
	})

	return h.handler.Handle(ctx, trimmed)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are trimmed before being added.
func (h *TrimHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	trimmedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		trimmedAttrs[i] = h.trimAttr(a)
	}
	return &TrimHandler{
		handler: h.handler.WithAttrs(trimmedAttrs),
		maxLen:  h.maxLen,
		rootURL: h.rootURL,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *TrimHandler) WithGroup(name string) slog.Handler {
	return &TrimHandler{
		handler: h.handler.WithGroup(name),
		maxLen:  h.maxLen,
		rootURL: h.rootURL,
	}
}

// trimAttr trims a single attribute, recursively handling groups.
func (h *TrimHandler) trimAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		trimmedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			trimmedAttrs[i] = h.trimAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(trimmedAttrs...)}
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, maskedValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	value := a.Value.String()
	if h.rootURL != "" && isURLKey(a.Key) {
		value = h.compactURL(value)
	}

	limit := h.maxLen
	if rawHTMLKeys[strings.ToLower(a.Key)] {
		limit = rawHTMLMaxLen
	}
	if len(value) > limit {
		value = fmt.Sprintf("%s...(%d bytes omitted)", value[:limit], len(value)-limit)
	}

	if value == a.Value.String() {
		return a
	}
	return slog.String(a.Key, value)
}

// compactURL rewrites a URL under the crawl root to its relative path.
func (h *TrimHandler) compactURL(value string) string {
	rest, found := strings.CutPrefix(value, h.rootURL)
	if !found || rest == "" {
		return value
	}
	return strings.TrimPrefix(rest, "/")
}

// isURLKey reports whether the attribute key conventionally carries a URL.
func isURLKey(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "url")
}

// NewLogger creates a new slog.Logger with attribute trimming and text
// output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Info
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or
// passed to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool, opts ...TrimHandlerOption) *slog.Logger {
	return slog.New(NewTrimHandler(slog.NewTextHandler(w, handlerOptions(verbose)), opts...))
}

// NewJSONLogger creates a new slog.Logger with attribute trimming that
// outputs JSON format. Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool, opts ...TrimHandlerOption) *slog.Logger {
	return slog.New(NewTrimHandler(slog.NewJSONHandler(w, handlerOptions(verbose)), opts...))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
