package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/bakinscan/internal/checkpoint"
	"github.com/nao1215/bakinscan/internal/config"
	"github.com/nao1215/bakinscan/internal/extract"
	"github.com/nao1215/bakinscan/internal/fetch"
	"github.com/nao1215/bakinscan/internal/model"
	"github.com/nao1215/bakinscan/internal/progress"
	"github.com/nao1215/bakinscan/internal/report"
)

// docRoot mirrors the path layout of the reference site.
const docRoot = "/csreference/doc/ja/"

// indexFixture lists two namespaces: Yukar at the top level and Engine
// nested under it, which the directory tree renders as Yukar.Engine.
const indexFixture = `<html><head><title>BAKIN: 名前空間一覧</title></head><body>
<div class="contents">
<table class="directory">
<tr><td><span style="width:0px;"></span><span class="icon">N</span><a class="el" href="namespace_yukar.html">Yukar</a></td><td class="desc">ルート名前空間</td></tr>
<tr><td><span style="width:16px;"></span><span class="icon">N</span><a class="el" href="namespace_yukar_1_1_engine.html">Engine</a></td><td class="desc">エンジン層</td></tr>
</table>
</div></body></html>`

// namespaceFixture renders a namespace page with one directory row per
// class, given as {href, name} pairs.
func namespaceFixture(name, desc string, classes ...[2]string) string {
	var rows strings.Builder
	for _, class := range classes {
		fmt.Fprintf(&rows,
			`<tr><td><span style="width:0px;"></span><span class="icon">C</span><a class="el" href="%s">%s</a></td><td class="desc">%sの説明</td></tr>`+"\n",
			class[0], class[1], class[1])
	}
	return fmt.Sprintf(`<html><head><title>BAKIN: %[1]s 名前空間参照</title></head><body>
<div class="header"><div class="headertitle"><div class="title">%[1]s 名前空間参照</div></div></div>
<div class="contents">
<div class="textblock"><p>%[2]s</p></div>
<table class="directory">
%[3]s</table>
</div></body></html>`, name, desc, rows.String())
}

// classPageFixture renders a class page with one public method.
func classPageFixture(fullName, desc string) string {
	return fmt.Sprintf(`<html><head><title>BAKIN: %[1]s クラス</title></head><body>
<div class="header"><div class="headertitle"><div class="title">%[1]s クラス</div></div></div>
<div class="contents">
<div class="textblock"><p>%[2]s</p></div>
<h2 class="groupheader">公開メンバ関数</h2>
<div class="memitem">
<div class="memproto">void Update (bool isPaused)</div>
<div class="memdoc"><p>毎フレームの更新処理を行います。</p></div>
</div>
</div></body></html>`, fullName, desc)
}

// fixturePages returns the standard test site: an index with two
// namespaces holding one class each.
func fixturePages() map[string]string {
	return map[string]string{
		docRoot + "annotated.html": indexFixture,
		docRoot + "namespace_yukar.html": namespaceFixture("Yukar", "ルート名前空間です。",
			[2]string{"class_yukar_1_1_game_main.html", "GameMain"}),
		docRoot + "namespace_yukar_1_1_engine.html": namespaceFixture("Yukar.Engine", "エンジン層の名前空間です。",
			[2]string{"class_yukar_1_1_engine_1_1_map_scene.html", "MapScene"}),
		docRoot + "class_yukar_1_1_game_main.html":            classPageFixture("Yukar.GameMain", "ゲーム本体を管理するクラスです。"),
		docRoot + "class_yukar_1_1_engine_1_1_map_scene.html": classPageFixture("Yukar.Engine.MapScene", "マップシーンを制御するクラスです。"),
	}
}

// docSite serves fixture pages over HTTP and counts the requests each
// path receives, so tests can assert what was and was not refetched.
type docSite struct {
	server *httptest.Server

	mu        sync.Mutex
	pages     map[string]string
	broken    map[string]int
	hits      map[string]int
	onRequest func(path string)
}

func newDocSite(t *testing.T, pages map[string]string) *docSite {
	t.Helper()

	site := &docSite{
		pages:  pages,
		broken: make(map[string]int),
		hits:   make(map[string]int),
	}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		status := site.broken[r.URL.Path]
		body, ok := site.pages[r.URL.Path]
		hook := site.onRequest
		site.mu.Unlock()

		if hook != nil {
			hook(r.URL.Path)
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(site.server.Close)
	return site
}

func (s *docSite) url(path string) string {
	return s.server.URL + path
}

func (s *docSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *docSite) breakPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[path] = status
}

func (s *docSite) fixPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.broken, path)
}

func (s *docSite) setOnRequest(hook func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequest = hook
}

// crawlHarness wires the real fetcher, extractor, checkpoint store and
// artifact writer against a fixture site.
type crawlHarness struct {
	site      *docSite
	store     *checkpoint.Store
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	artifacts *report.ArtifactWriter
	outDir    string
	rootURL   string
}

func newCrawlHarness(t *testing.T, pages map[string]string) *crawlHarness {
	t.Helper()

	site := newDocSite(t, pages)
	store, err := checkpoint.Open(t.TempDir(), checkpoint.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open checkpoint store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	rootURL := site.url(docRoot + "annotated.html")
	outDir := t.TempDir()
	return &crawlHarness{
		site:  site,
		store: store,
		fetcher: fetch.NewFetcher(site.server.Client(),
			fetch.WithRequestInterval(0),
			fetch.WithMaxRetries(1),
			fetch.WithRetryBaseDelay(time.Millisecond),
			fetch.WithLogger(discardLogger()),
		),
		extractor: extract.New(rootURL, extract.WithLogger(discardLogger())),
		artifacts: report.NewArtifactWriter(outDir),
		outDir:    outDir,
		rootURL:   rootURL,
	}
}

// startState opens or resumes the run row for the harness root and
// rebuilds the in-memory state from it, the way the batch processor
// does before executing a pipeline.
func (h *crawlHarness) startState(t *testing.T, ctx context.Context) *model.CrawlState {
	t.Helper()
	return h.startStateAt(t, ctx, h.rootURL)
}

func (h *crawlHarness) startStateAt(t *testing.T, ctx context.Context, rootURL string) *model.CrawlState {
	t.Helper()

	run, resumed, err := h.store.StartRun(ctx, rootURL)
	if err != nil {
		t.Fatalf("failed to start run: %v", err)
	}
	state := model.NewCrawlState(run.ID, run.RootURL, run.StartedAt)
	if run.Phase.IsValid() {
		state.SetPhase(run.Phase)
	}
	if resumed {
		state.SetTotals(run.TotalNamespaces, run.TotalClasses)
	}
	return state
}

func (h *crawlHarness) discoverStep(opts ...DiscoverStepOption) *DiscoverStep {
	base := []DiscoverStepOption{WithDiscoverLogger(discardLogger())}
	return NewDiscoverStep(h.store, h.fetcher, h.extractor, append(base, opts...)...)
}

func (h *crawlHarness) extractStep(opts ...ExtractStepOption) *ExtractStep {
	base := []ExtractStepOption{WithExtractLogger(discardLogger()), WithExtractSnapshotEvery(0)}
	return NewExtractStep(h.store, h.fetcher, h.extractor, h.artifacts, append(base, opts...)...)
}

func (h *crawlHarness) finalizeStep(opts ...FinalizeStepOption) *FinalizeStep {
	base := []FinalizeStepOption{WithFinalizeLogger(discardLogger())}
	return NewFinalizeStep(h.store, h.artifacts, append(base, opts...)...)
}

// run executes the given steps as one pipeline invocation over the
// harness root.
func (h *crawlHarness) run(t *testing.T, ctx context.Context, steps ...Step) (*model.CrawlState, error) {
	t.Helper()

	state := h.startState(t, ctx)
	p := New(WithLogger(discardLogger()))
	p.AddSteps(steps...)
	return state, p.Execute(ctx, state)
}

// recordingSink captures progress events for inspection.
type recordingSink struct {
	mu     sync.Mutex
	events []progress.Event
}

func (s *recordingSink) Record(event progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byStage(stage progress.Stage) []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]progress.Event, 0, len(s.events))
	for _, event := range s.events {
		if event.Stage == stage {
			events = append(events, event)
		}
	}
	return events
}

// TestNewDiscoverStep tests the DiscoverStep constructor.
func TestNewDiscoverStep(t *testing.T) {
	t.Parallel()

	t.Run("creates with defaults", func(t *testing.T) {
		t.Parallel()

		s := NewDiscoverStep(nil, nil, nil)

		if s.concurrency != config.DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", config.DefaultConcurrency, s.concurrency)
		}
		if !s.retryFailed {
			t.Error("expected retryFailed to default to true")
		}
		if s.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithDiscoverConcurrency", func(t *testing.T) {
		t.Parallel()

		s := NewDiscoverStep(nil, nil, nil, WithDiscoverConcurrency(7))
		if s.concurrency != 7 {
			t.Errorf("expected concurrency 7, got %d", s.concurrency)
		}
	})

	t.Run("WithDiscoverConcurrency ignores non-positive values", func(t *testing.T) {
		t.Parallel()

		s := NewDiscoverStep(nil, nil, nil, WithDiscoverConcurrency(0))
		if s.concurrency != config.DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", s.concurrency)
		}
	})

	t.Run("applies WithDiscoverRetryFailed", func(t *testing.T) {
		t.Parallel()

		s := NewDiscoverStep(nil, nil, nil, WithDiscoverRetryFailed(false))
		if s.retryFailed {
			t.Error("expected retryFailed to be false")
		}
	})

	t.Run("applies WithDiscoverSink", func(t *testing.T) {
		t.Parallel()

		sink := &recordingSink{}
		s := NewDiscoverStep(nil, nil, nil, WithDiscoverSink(sink))
		if s.rec.sink != sink {
			t.Error("expected the sink to be set")
		}
	})

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()

		s := NewDiscoverStep(nil, nil, nil)
		if s.Name() != "discover" {
			t.Errorf("expected name 'discover', got %q", s.Name())
		}
	})
}

// TestNewExtractStep tests the ExtractStep constructor.
func TestNewExtractStep(t *testing.T) {
	t.Parallel()

	t.Run("creates with defaults", func(t *testing.T) {
		t.Parallel()

		s := NewExtractStep(nil, nil, nil, nil)

		if s.concurrency != config.DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", config.DefaultConcurrency, s.concurrency)
		}
		if s.snapshotEvery != config.DefaultSnapshotEvery {
			t.Errorf("expected snapshot cadence %d, got %d", config.DefaultSnapshotEvery, s.snapshotEvery)
		}
	})

	t.Run("applies WithExtractSnapshotEvery", func(t *testing.T) {
		t.Parallel()

		s := NewExtractStep(nil, nil, nil, nil, WithExtractSnapshotEvery(5))
		if s.snapshotEvery != 5 {
			t.Errorf("expected snapshot cadence 5, got %d", s.snapshotEvery)
		}
	})

	t.Run("WithExtractSnapshotEvery accepts zero to disable snapshots", func(t *testing.T) {
		t.Parallel()

		s := NewExtractStep(nil, nil, nil, nil, WithExtractSnapshotEvery(0))
		if s.snapshotEvery != 0 {
			t.Errorf("expected snapshot cadence 0, got %d", s.snapshotEvery)
		}
	})

	t.Run("WithExtractSnapshotEvery ignores negative values", func(t *testing.T) {
		t.Parallel()

		s := NewExtractStep(nil, nil, nil, nil, WithExtractSnapshotEvery(-1))
		if s.snapshotEvery != config.DefaultSnapshotEvery {
			t.Errorf("expected default snapshot cadence, got %d", s.snapshotEvery)
		}
	})

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()

		s := NewExtractStep(nil, nil, nil, nil)
		if s.Name() != "extract" {
			t.Errorf("expected name 'extract', got %q", s.Name())
		}
	})
}

// TestNewFinalizeStep tests the FinalizeStep constructor.
func TestNewFinalizeStep(t *testing.T) {
	t.Parallel()

	t.Run("creates with defaults", func(t *testing.T) {
		t.Parallel()

		s := NewFinalizeStep(nil, nil)

		if s.classList {
			t.Error("expected the class list artifact to default to off")
		}
		if s.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("applies WithFinalizeClassList", func(t *testing.T) {
		t.Parallel()

		s := NewFinalizeStep(nil, nil, WithFinalizeClassList(true))
		if !s.classList {
			t.Error("expected the class list artifact to be enabled")
		}
	})

	t.Run("Name returns correct value", func(t *testing.T) {
		t.Parallel()

		s := NewFinalizeStep(nil, nil)
		if s.Name() != "finalize" {
			t.Errorf("expected name 'finalize', got %q", s.Name())
		}
	})
}

// TestDiscoverStep tests the discovery stage against a fixture site.
func TestDiscoverStep(t *testing.T) {
	t.Parallel()

	t.Run("fetches the index and seeds the class work list", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		namespaces, classes := state.Totals()
		if namespaces != 2 || classes != 2 {
			t.Errorf("expected totals (2, 2), got (%d, %d)", namespaces, classes)
		}
		if state.Phase() != model.PhaseExtracting {
			t.Errorf("expected phase extracting, got %s", state.Phase())
		}

		counts, err := h.store.Counts(ctx)
		if err != nil {
			t.Fatalf("failed to count items: %v", err)
		}
		if counts.Done != 3 {
			t.Errorf("expected 3 done items (index and two namespaces), got %d", counts.Done)
		}
		if counts.Pending != 2 {
			t.Errorf("expected 2 pending class items, got %d", counts.Pending)
		}

		run, err := h.store.RunByRoot(ctx, h.rootURL)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if run.Phase != model.PhaseExtracting {
			t.Errorf("expected stored phase extracting, got %s", run.Phase)
		}
		if run.TotalNamespaces != 2 || run.TotalClasses != 2 {
			t.Errorf("expected stored totals (2, 2), got (%d, %d)", run.TotalNamespaces, run.TotalClasses)
		}

		sum := state.Summary()
		if sum.DoneCount != 2 || sum.FetchedCount != 2 || sum.ReusedCount != 0 {
			t.Errorf("unexpected summary counts: done=%d fetched=%d reused=%d",
				sum.DoneCount, sum.FetchedCount, sum.ReusedCount)
		}
	})

	t.Run("reuses stored listings on the next invocation", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		if _, err := h.run(t, ctx, h.discoverStep()); err != nil {
			t.Fatalf("first invocation failed: %v", err)
		}
		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("second invocation failed: %v", err)
		}

		if got := h.site.hitCount(docRoot + "annotated.html"); got != 1 {
			t.Errorf("index page fetched %d times, want 1", got)
		}
		if got := h.site.hitCount(docRoot + "namespace_yukar.html"); got != 1 {
			t.Errorf("namespace page fetched %d times, want 1", got)
		}

		sum := state.Summary()
		if sum.ReusedCount != 2 || sum.FetchedCount != 0 {
			t.Errorf("expected 2 reused and 0 fetched, got reused=%d fetched=%d",
				sum.ReusedCount, sum.FetchedCount)
		}
	})

	t.Run("records a failed namespace page and carries on", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"namespace_yukar_1_1_engine.html", http.StatusInternalServerError)

		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		failures := state.Failures()
		if len(failures) != 1 {
			t.Fatalf("expected one failure, got %+v", failures)
		}
		if failures[0].Kind != model.ErrorKindNetwork {
			t.Errorf("expected a network failure, got %s", failures[0].Kind)
		}
		if failures[0].Role != model.PageRoleNamespace {
			t.Errorf("expected a namespace failure, got %s", failures[0].Role)
		}

		namespaces, classes := state.Totals()
		if namespaces != 2 || classes != 1 {
			t.Errorf("expected totals (2, 1), got (%d, %d)", namespaces, classes)
		}

		item, err := h.store.Item(ctx, model.CanonicalKey(h.site.url(docRoot+"namespace_yukar_1_1_engine.html")))
		if err != nil {
			t.Fatalf("failed to load item: %v", err)
		}
		if item == nil || item.Status != model.StatusFailed {
			t.Fatalf("expected the namespace item to be failed, got %+v", item)
		}
		if item.Attempts != 2 {
			t.Errorf("expected 2 recorded attempts, got %d", item.Attempts)
		}
	})

	t.Run("counts a missing namespace page as a skip", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"namespace_yukar_1_1_engine.html", http.StatusNotFound)

		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(state.Failures()) != 0 {
			t.Errorf("expected no failures, got %+v", state.Failures())
		}
		skipped := state.Skipped()
		if len(skipped) != 1 {
			t.Fatalf("expected one skipped item, got %+v", skipped)
		}
		if state.Summary().NotFoundCount != 1 {
			t.Errorf("expected NotFoundCount 1, got %d", state.Summary().NotFoundCount)
		}

		item, err := h.store.Item(ctx, model.CanonicalKey(h.site.url(docRoot+"namespace_yukar_1_1_engine.html")))
		if err != nil {
			t.Fatalf("failed to load item: %v", err)
		}
		if item == nil || item.ErrorKind != model.ErrorKindNotFound {
			t.Fatalf("expected a not_found item, got %+v", item)
		}
	})

	t.Run("aborts when the index page cannot be fetched", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"annotated.html", http.StatusInternalServerError)

		if _, err := h.run(t, ctx, h.discoverStep()); err == nil {
			t.Fatal("expected an error for the unreachable index")
		}

		item, err := h.store.Item(ctx, model.CanonicalKey(h.rootURL))
		if err != nil {
			t.Fatalf("failed to load item: %v", err)
		}
		if item == nil || item.Status != model.StatusFailed {
			t.Fatalf("expected the index item to be failed, got %+v", item)
		}
		if item.ErrorKind != model.ErrorKindNetwork {
			t.Errorf("expected a network failure, got %s", item.ErrorKind)
		}
	})

	t.Run("a failed index stays fatal until requeued", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"annotated.html", http.StatusInternalServerError)

		if _, err := h.run(t, ctx, h.discoverStep(WithDiscoverRetryFailed(false))); err == nil {
			t.Fatal("expected the first invocation to fail")
		}

		_, err := h.run(t, ctx, h.discoverStep(WithDiscoverRetryFailed(false)))
		if err == nil || !strings.Contains(err.Error(), "previous invocation") {
			t.Fatalf("expected the stored index failure to abort the crawl, got %v", err)
		}

		h.site.fixPath(docRoot + "annotated.html")
		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("expected the requeued index to succeed, got %v", err)
		}
		if namespaces, _ := state.Totals(); namespaces != 2 {
			t.Errorf("expected 2 namespaces after the retry, got %d", namespaces)
		}
	})

	t.Run("a namespace page without structure is a parse failure", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		pages := fixturePages()
		pages[docRoot+"namespace_yukar_1_1_engine.html"] = `<html><body><p>壊れたページ</p></body></html>`
		h := newCrawlHarness(t, pages)

		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		failures := state.Failures()
		if len(failures) != 1 {
			t.Fatalf("expected one failure, got %+v", failures)
		}
		if failures[0].Kind != model.ErrorKindParse {
			t.Errorf("expected a parse failure, got %s", failures[0].Kind)
		}
	})

	t.Run("index fallback warnings are collected", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		pages := fixturePages()
		pages[docRoot+"annotated.html"] = `<html><body><div class="contents">
<p><a href="namespace_yukar.html">Yukar</a> の概要です。</p>
</div></body></html>`
		h := newCrawlHarness(t, pages)

		state, err := h.run(t, ctx, h.discoverStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if state.Summary().WarningCount == 0 {
			t.Error("expected the flat-link fallback to record a warning")
		}
		if namespaces, _ := state.Totals(); namespaces != 1 {
			t.Errorf("expected 1 namespace, got %d", namespaces)
		}
	})
}

// TestExtractStep tests the extraction stage against a fixture site.
func TestExtractStep(t *testing.T) {
	t.Parallel()

	t.Run("extracts every pending class page", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sum := state.Summary()
		if sum.DoneCount != 4 || sum.FetchedCount != 4 || sum.FailedCount != 0 {
			t.Errorf("unexpected summary counts: done=%d fetched=%d failed=%d",
				sum.DoneCount, sum.FetchedCount, sum.FailedCount)
		}
		if state.Phase() != model.PhaseFinalizing {
			t.Errorf("expected phase finalizing, got %s", state.Phase())
		}

		counts, err := h.store.Counts(ctx)
		if err != nil {
			t.Fatalf("failed to count items: %v", err)
		}
		if counts.Done != 5 || counts.Pending != 0 {
			t.Errorf("expected 5 done and 0 pending, got %+v", counts)
		}

		payload, err := h.store.Payload(ctx, model.CanonicalKey(h.site.url(docRoot+"class_yukar_1_1_game_main.html")))
		if err != nil {
			t.Fatalf("failed to load payload: %v", err)
		}
		var class model.Class
		if err := json.Unmarshal(payload, &class); err != nil {
			t.Fatalf("failed to decode class record: %v", err)
		}
		if class.FullName != "Yukar.GameMain" || class.Name != "GameMain" {
			t.Errorf("unexpected class identity: %q %q", class.FullName, class.Name)
		}
		if len(class.Methods) != 1 {
			t.Errorf("expected one extracted method, got %+v", class.Methods)
		}
	})

	t.Run("marks a class failed after the retry budget is spent", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"class_yukar_1_1_engine_1_1_map_scene.html", http.StatusInternalServerError)

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		failures := state.Failures()
		if len(failures) != 1 {
			t.Fatalf("expected one failure, got %+v", failures)
		}
		if failures[0].Kind != model.ErrorKindNetwork || failures[0].Role != model.PageRoleClass {
			t.Errorf("unexpected failure: %+v", failures[0])
		}
		if state.Phase() != model.PhaseFinalizing {
			t.Errorf("expected the run to reach finalizing, got %s", state.Phase())
		}

		item, err := h.store.Item(ctx, model.CanonicalKey(h.site.url(docRoot+"class_yukar_1_1_engine_1_1_map_scene.html")))
		if err != nil {
			t.Fatalf("failed to load item: %v", err)
		}
		if item == nil || item.Status != model.StatusFailed {
			t.Fatalf("expected a failed item, got %+v", item)
		}
		if item.Attempts != 2 {
			t.Errorf("expected 2 recorded attempts, got %d", item.Attempts)
		}
	})

	t.Run("skips a class page the server reports missing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"class_yukar_1_1_engine_1_1_map_scene.html", http.StatusNotFound)

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(state.Failures()) != 0 {
			t.Errorf("expected no failures, got %+v", state.Failures())
		}
		if len(state.Skipped()) != 1 {
			t.Fatalf("expected one skipped item, got %+v", state.Skipped())
		}
		if got := h.site.hitCount(docRoot + "class_yukar_1_1_engine_1_1_map_scene.html"); got != 1 {
			t.Errorf("missing pages are not retryable, yet the page saw %d requests", got)
		}
	})

	t.Run("never refetches classes finished in an earlier invocation", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		if _, err := h.run(t, ctx, h.discoverStep(), h.extractStep()); err != nil {
			t.Fatalf("first invocation failed: %v", err)
		}

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep())
		if err != nil {
			t.Fatalf("second invocation failed: %v", err)
		}

		for _, path := range []string{
			docRoot + "class_yukar_1_1_game_main.html",
			docRoot + "class_yukar_1_1_engine_1_1_map_scene.html",
		} {
			if got := h.site.hitCount(path); got != 1 {
				t.Errorf("class page %s fetched %d times, want 1", path, got)
			}
		}

		sum := state.Summary()
		if sum.DoneCount != 4 || sum.ReusedCount != 4 || sum.FetchedCount != 0 {
			t.Errorf("unexpected resume counts: done=%d reused=%d fetched=%d",
				sum.DoneCount, sum.ReusedCount, sum.FetchedCount)
		}
	})

	t.Run("requeues failed classes by default", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		brokenPath := docRoot + "class_yukar_1_1_engine_1_1_map_scene.html"
		h.site.breakPath(brokenPath, http.StatusInternalServerError)

		if _, err := h.run(t, ctx, h.discoverStep(), h.extractStep()); err != nil {
			t.Fatalf("first invocation failed: %v", err)
		}
		h.site.fixPath(brokenPath)

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep())
		if err != nil {
			t.Fatalf("second invocation failed: %v", err)
		}

		sum := state.Summary()
		if sum.FailedCount != 0 || sum.DoneCount != 4 {
			t.Errorf("expected the retried class to succeed, got done=%d failed=%d",
				sum.DoneCount, sum.FailedCount)
		}
		if sum.FetchedCount != 1 || sum.ReusedCount != 3 {
			t.Errorf("expected 1 fetched and 3 reused, got fetched=%d reused=%d",
				sum.FetchedCount, sum.ReusedCount)
		}

		item, err := h.store.Item(ctx, model.CanonicalKey(h.site.url(brokenPath)))
		if err != nil {
			t.Fatalf("failed to load item: %v", err)
		}
		if item == nil || item.Status != model.StatusDone {
			t.Fatalf("expected the item to be done after the retry, got %+v", item)
		}
		if item.Attempts != 3 {
			t.Errorf("expected attempts to accumulate to 3, got %d", item.Attempts)
		}
	})

	t.Run("keeps failed classes failed when retry is disabled", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		brokenPath := docRoot + "class_yukar_1_1_engine_1_1_map_scene.html"
		h.site.breakPath(brokenPath, http.StatusInternalServerError)

		if _, err := h.run(t, ctx, h.discoverStep(), h.extractStep()); err != nil {
			t.Fatalf("first invocation failed: %v", err)
		}
		h.site.fixPath(brokenPath)

		state, err := h.run(t, ctx, h.discoverStep(WithDiscoverRetryFailed(false)), h.extractStep())
		if err != nil {
			t.Fatalf("second invocation failed: %v", err)
		}

		if state.Summary().FailedCount != 1 {
			t.Errorf("expected the stored failure to be replayed, got %+v", state.Summary())
		}
		if got := h.site.hitCount(brokenPath); got != 2 {
			t.Errorf("expected no further fetches for the failed class, got %d hits", got)
		}
	})

	t.Run("flushes periodic dataset snapshots", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state, err := h.run(t, ctx,
			h.discoverStep(),
			h.extractStep(WithExtractSnapshotEvery(1), WithExtractConcurrency(1)),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if state.DatasetPath == "" {
			t.Fatal("expected a snapshot to record the dataset path")
		}
		ds, err := report.ReadDataset(state.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read snapshot: %v", err)
		}
		if ds.Metadata.TotalClasses != 2 {
			t.Errorf("expected the last snapshot to hold 2 classes, got %d", ds.Metadata.TotalClasses)
		}

		// The run itself has not been finished by a finalize step.
		run, err := h.store.RunByRoot(ctx, h.rootURL)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if !run.FinishedAt.IsZero() {
			t.Errorf("expected the run to still be open, finished at %v", run.FinishedAt)
		}
	})

	t.Run("writes no snapshots when the cadence is zero", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if state.DatasetPath != "" {
			t.Errorf("expected no snapshot path, got %q", state.DatasetPath)
		}
		entries, err := os.ReadDir(h.outDir)
		if err != nil {
			t.Fatalf("failed to read output dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected an empty output dir, got %v", entries)
		}
	})
}

// TestFinalizeStep tests dataset assembly and run completion.
func TestFinalizeStep(t *testing.T) {
	t.Parallel()

	t.Run("assembles the dataset artifact and finishes the run", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep(), h.finalizeStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if state.Phase() != model.PhaseDone {
			t.Errorf("expected phase done, got %s", state.Phase())
		}
		if state.DatasetPath == "" {
			t.Fatal("expected a dataset path")
		}

		ds, err := report.ReadDataset(state.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read dataset: %v", err)
		}
		if ds.Metadata.TotalNamespaces != 2 || ds.Metadata.TotalClasses != 2 {
			t.Errorf("unexpected dataset totals: %+v", ds.Metadata)
		}
		if ds.Metadata.SourceURL != h.rootURL {
			t.Errorf("expected source %q, got %q", h.rootURL, ds.Metadata.SourceURL)
		}
		if want := state.StartedAt.UTC().Format(time.RFC3339); ds.Metadata.ScrapedAt != want {
			t.Errorf("expected scrapedAt %q, got %q", want, ds.Metadata.ScrapedAt)
		}

		if len(ds.Namespaces) != 2 {
			t.Fatalf("expected 2 namespaces, got %+v", ds.Namespaces)
		}
		if ds.Namespaces[0].Name != "Yukar" || ds.Namespaces[1].Name != "Yukar.Engine" {
			t.Errorf("expected sorted namespaces, got %q and %q",
				ds.Namespaces[0].Name, ds.Namespaces[1].Name)
		}
		if len(ds.Namespaces[0].Classes) != 1 || ds.Namespaces[0].Classes[0].FullName != "Yukar.GameMain" {
			t.Errorf("unexpected Yukar classes: %+v", ds.Namespaces[0].Classes)
		}
		if len(ds.Namespaces[1].Classes) != 1 || ds.Namespaces[1].Classes[0].FullName != "Yukar.Engine.MapScene" {
			t.Errorf("unexpected Yukar.Engine classes: %+v", ds.Namespaces[1].Classes)
		}

		run, err := h.store.RunByRoot(ctx, h.rootURL)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if run.Phase != model.PhaseDone {
			t.Errorf("expected stored phase done, got %s", run.Phase)
		}
		if run.DoneCount != 4 || run.FailedCount != 0 {
			t.Errorf("unexpected stored counts: done=%d failed=%d", run.DoneCount, run.FailedCount)
		}
		if run.DatasetPath != state.DatasetPath {
			t.Errorf("expected stored dataset path %q, got %q", state.DatasetPath, run.DatasetPath)
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected a recorded finish time")
		}
	})

	t.Run("failures leave the run done with errors", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		h.site.breakPath(docRoot+"class_yukar_1_1_engine_1_1_map_scene.html", http.StatusInternalServerError)

		state, err := h.run(t, ctx, h.discoverStep(), h.extractStep(), h.finalizeStep())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if state.Phase() != model.PhaseDoneWithErrors {
			t.Errorf("expected phase done_with_errors, got %s", state.Phase())
		}

		ds, err := report.ReadDataset(state.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read dataset: %v", err)
		}
		if ds.Metadata.TotalNamespaces != 2 || ds.Metadata.TotalClasses != 1 {
			t.Errorf("unexpected dataset totals: %+v", ds.Metadata)
		}

		// The namespace whose class failed stays in the dataset with an
		// empty class list.
		var engine *model.Namespace
		for i := range ds.Namespaces {
			if ds.Namespaces[i].Name == "Yukar.Engine" {
				engine = &ds.Namespaces[i]
			}
		}
		if engine == nil {
			t.Fatalf("expected the Yukar.Engine namespace, got %+v", ds.Namespaces)
		}
		if len(engine.Classes) != 0 {
			t.Errorf("expected no classes under Yukar.Engine, got %+v", engine.Classes)
		}

		run, err := h.store.RunByRoot(ctx, h.rootURL)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if run.Phase != model.PhaseDoneWithErrors || run.FailedCount != 1 {
			t.Errorf("unexpected stored run: phase=%s failed=%d", run.Phase, run.FailedCount)
		}
	})

	t.Run("finalizing twice produces identical bytes", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state1, err := h.run(t, ctx, h.discoverStep(), h.extractStep(), h.finalizeStep())
		if err != nil {
			t.Fatalf("first crawl failed: %v", err)
		}
		data1, err := os.ReadFile(state1.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read artifact: %v", err)
		}

		state2, err := h.run(t, ctx, h.discoverStep(), h.extractStep(), h.finalizeStep())
		if err != nil {
			t.Fatalf("second crawl failed: %v", err)
		}
		if state2.DatasetPath != state1.DatasetPath {
			t.Fatalf("artifact path changed between invocations: %q vs %q",
				state1.DatasetPath, state2.DatasetPath)
		}

		data2, err := os.ReadFile(state2.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read artifact: %v", err)
		}
		if !bytes.Equal(data1, data2) {
			t.Error("expected re-finalizing to reproduce the artifact byte for byte")
		}

		if got := h.site.hitCount(docRoot + "class_yukar_1_1_game_main.html"); got != 1 {
			t.Errorf("re-finalizing fetched a finished page %d times", got)
		}
	})

	t.Run("writes the class list artifact when enabled", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state, err := h.run(t, ctx,
			h.discoverStep(),
			h.extractStep(),
			h.finalizeStep(WithFinalizeClassList(true)),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := filepath.Join(h.outDir, model.ClassListFileName)
		if state.ClassListPath != want {
			t.Fatalf("expected class list at %q, got %q", want, state.ClassListPath)
		}

		data, err := os.ReadFile(state.ClassListPath)
		if err != nil {
			t.Fatalf("failed to read class list: %v", err)
		}
		var list model.ClassList
		if err := json.Unmarshal(data, &list); err != nil {
			t.Fatalf("failed to decode class list: %v", err)
		}
		if list.Metadata.TotalClasses != 2 || len(list.Namespaces) != 2 {
			t.Errorf("unexpected class list: %+v", list.Metadata)
		}

		run, err := h.store.RunByRoot(ctx, h.rootURL)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if run.ClassListPath != state.ClassListPath {
			t.Errorf("expected stored class list path %q, got %q", state.ClassListPath, run.ClassListPath)
		}
	})

	t.Run("fails when discovery has not stored an index listing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())

		state := h.startState(t, ctx)
		err := h.finalizeStep().Do(ctx, state)
		if err == nil || !strings.Contains(err.Error(), "discovery has not completed") {
			t.Fatalf("expected the missing index listing to fail finalize, got %v", err)
		}
	})
}

// TestCrawlResume tests that an interrupted crawl picks up where it
// stopped instead of refetching finished work.
func TestCrawlResume(t *testing.T) {
	t.Parallel()

	t.Run("an interrupted extraction resumes where it stopped", func(t *testing.T) {
		t.Parallel()

		classes := [][2]string{
			{"class_yukar_1_1_alpha.html", "Alpha"},
			{"class_yukar_1_1_beta.html", "Beta"},
			{"class_yukar_1_1_delta.html", "Delta"},
			{"class_yukar_1_1_gamma.html", "Gamma"},
			{"class_yukar_1_1_omega.html", "Omega"},
		}
		pages := map[string]string{
			docRoot + "annotated.html": `<html><body><div class="contents">
<table class="directory">
<tr><td><span style="width:0px;"></span><span class="icon">N</span><a class="el" href="namespace_yukar.html">Yukar</a></td><td class="desc">ルート名前空間</td></tr>
</table>
</div></body></html>`,
			docRoot + "namespace_yukar.html": namespaceFixture("Yukar", "ルート名前空間です。", classes...),
		}
		for _, class := range classes {
			pages[docRoot+class[0]] = classPageFixture("Yukar."+class[1], class[1]+"のクラスです。")
		}

		h := newCrawlHarness(t, pages)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Cancel the crawl when the fourth class page is requested. With
		// one worker the first three classes are committed by then.
		var hookMu sync.Mutex
		classHits := 0
		h.site.setOnRequest(func(path string) {
			if !strings.HasPrefix(path, docRoot+"class_") {
				return
			}
			hookMu.Lock()
			classHits++
			n := classHits
			hookMu.Unlock()
			if n == 4 {
				cancel()
			}
		})

		state := h.startState(t, ctx)
		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			h.discoverStep(WithDiscoverConcurrency(1)),
			h.extractStep(WithExtractConcurrency(1)),
		)
		if err := p.Execute(ctx, state); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		counts, err := h.store.Counts(context.Background())
		if err != nil {
			t.Fatalf("failed to count items: %v", err)
		}
		doneClasses := counts.Done - 2 // minus the index and namespace rows
		if doneClasses < 3 {
			t.Fatalf("expected at least 3 classes committed before the cancel, got %d", doneClasses)
		}
		if counts.Pending == 0 {
			t.Fatal("expected work left to resume")
		}

		// Remember what was fetched and what was already committed.
		fetched := make(map[string]int, len(classes))
		doneBefore := make(map[string]bool, len(classes))
		for _, class := range classes {
			fetched[class[0]] = h.site.hitCount(docRoot + class[0])
			item, err := h.store.Item(context.Background(), model.CanonicalKey(h.site.url(docRoot+class[0])))
			if err != nil {
				t.Fatalf("failed to load item: %v", err)
			}
			if item != nil && item.Status == model.StatusDone {
				doneBefore[class[0]] = true
			}
		}
		h.site.setOnRequest(nil)

		state2, err := h.run(t, context.Background(), h.discoverStep(), h.extractStep(), h.finalizeStep())
		if err != nil {
			t.Fatalf("resume failed: %v", err)
		}
		if state2.Phase() != model.PhaseDone {
			t.Errorf("expected phase done, got %s", state2.Phase())
		}

		// Classes committed before the interruption were not refetched.
		for _, class := range classes {
			if !doneBefore[class[0]] {
				continue
			}
			if got := h.site.hitCount(docRoot + class[0]); got != fetched[class[0]] {
				t.Errorf("class page %s refetched on resume: %d hits, was %d",
					class[0], got, fetched[class[0]])
			}
		}
		if got := h.site.hitCount(docRoot + "annotated.html"); got != 1 {
			t.Errorf("index page fetched %d times across both invocations, want 1", got)
		}
		if got := h.site.hitCount(docRoot + "namespace_yukar.html"); got != 1 {
			t.Errorf("namespace page fetched %d times across both invocations, want 1", got)
		}

		ds, err := report.ReadDataset(state2.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read dataset: %v", err)
		}
		if ds.Metadata.TotalClasses != 5 {
			t.Errorf("expected all 5 classes in the final dataset, got %d", ds.Metadata.TotalClasses)
		}

		sum := state2.Summary()
		if sum.DoneCount != 6 || sum.FailedCount != 0 {
			t.Errorf("unexpected resume summary: done=%d failed=%d", sum.DoneCount, sum.FailedCount)
		}
	})
}

// TestCrawlProgressEvents tests the event stream of a full crawl.
func TestCrawlProgressEvents(t *testing.T) {
	t.Parallel()

	t.Run("steps announce phases, items and artifacts", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		h := newCrawlHarness(t, fixturePages())
		sink := &recordingSink{}

		_, err := h.run(t, ctx,
			h.discoverStep(WithDiscoverSink(sink), WithDiscoverConcurrency(1)),
			h.extractStep(WithExtractSink(sink), WithExtractConcurrency(1)),
			h.finalizeStep(WithFinalizeSink(sink)),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		phases := sink.byStage(progress.StagePhase)
		if len(phases) != 2 {
			t.Fatalf("expected 2 phase events, got %+v", phases)
		}
		if phases[0].Phase != model.PhaseExtracting || phases[1].Phase != model.PhaseFinalizing {
			t.Errorf("unexpected phase order: %s then %s", phases[0].Phase, phases[1].Phase)
		}

		items := sink.byStage(progress.StageItem)
		if len(items) != 4 {
			t.Fatalf("expected 4 item events, got %d", len(items))
		}
		for _, event := range items {
			if event.Outcome != progress.OutcomeDone {
				t.Errorf("expected outcome done, got %s for %s", event.Outcome, event.Key)
			}
		}
		last := items[len(items)-1]
		if last.Done != 4 || last.Total != 4 {
			t.Errorf("expected the last item event to report 4/4, got %d/%d", last.Done, last.Total)
		}

		artifacts := sink.byStage(progress.StageArtifact)
		if len(artifacts) != 1 {
			t.Fatalf("expected one artifact event, got %+v", artifacts)
		}
	})
}

// TestDatasetScoping tests that roots sharing one checkpoint store do
// not leak records into each other's datasets.
func TestDatasetScoping(t *testing.T) {
	t.Parallel()

	t.Run("roots sharing a store keep their datasets apart", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		pages := fixturePages()
		pages[docRoot+"tools.html"] = `<html><body><div class="contents">
<table class="directory">
<tr><td><span style="width:0px;"></span><span class="icon">N</span><a class="el" href="namespace_sharp_kmy.html">SharpKmy</a></td><td class="desc">描画基盤</td></tr>
</table>
</div></body></html>`
		pages[docRoot+"namespace_sharp_kmy.html"] = namespaceFixture("SharpKmy", "描画基盤の名前空間です。",
			[2]string{"class_sharp_kmy_1_1_texture.html", "Texture"})
		pages[docRoot+"class_sharp_kmy_1_1_texture.html"] = classPageFixture("SharpKmy.Texture", "テクスチャを扱うクラスです。")

		h := newCrawlHarness(t, pages)

		stateA, err := h.run(t, ctx, h.discoverStep(), h.extractStep(), h.finalizeStep())
		if err != nil {
			t.Fatalf("first crawl failed: %v", err)
		}
		dsA, err := report.ReadDataset(stateA.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read first dataset: %v", err)
		}
		if dsA.Metadata.TotalNamespaces != 2 || dsA.Metadata.TotalClasses != 2 {
			t.Errorf("unexpected first dataset: %+v", dsA.Metadata)
		}

		// Crawl the second root against the same store.
		rootB := h.site.url(docRoot + "tools.html")
		extractorB := extract.New(rootB, extract.WithLogger(discardLogger()))
		stateB := h.startStateAt(t, ctx, rootB)
		p := New(WithLogger(discardLogger()))
		p.AddSteps(
			NewDiscoverStep(h.store, h.fetcher, extractorB, WithDiscoverLogger(discardLogger())),
			NewExtractStep(h.store, h.fetcher, extractorB, h.artifacts,
				WithExtractLogger(discardLogger()), WithExtractSnapshotEvery(0)),
			NewFinalizeStep(h.store, h.artifacts, WithFinalizeLogger(discardLogger())),
		)
		if err := p.Execute(ctx, stateB); err != nil {
			t.Fatalf("second crawl failed: %v", err)
		}

		dsB, err := report.ReadDataset(stateB.DatasetPath)
		if err != nil {
			t.Fatalf("failed to read second dataset: %v", err)
		}
		if dsB.Metadata.TotalNamespaces != 1 || dsB.Metadata.TotalClasses != 1 {
			t.Fatalf("expected only the SharpKmy tree, got %+v", dsB.Metadata)
		}
		if dsB.Namespaces[0].Name != "SharpKmy" {
			t.Errorf("unexpected namespace: %+v", dsB.Namespaces[0])
		}
		if dsB.Metadata.SourceURL != rootB {
			t.Errorf("expected source %q, got %q", rootB, dsB.Metadata.SourceURL)
		}
	})
}
