package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/bakinscan/internal/checkpoint"
	"github.com/nao1215/bakinscan/internal/clock"
	"github.com/nao1215/bakinscan/internal/config"
	"github.com/nao1215/bakinscan/internal/extract"
	"github.com/nao1215/bakinscan/internal/fetch"
	"github.com/nao1215/bakinscan/internal/model"
	"github.com/nao1215/bakinscan/internal/progress"
	"github.com/nao1215/bakinscan/internal/report"
)

// recorder applies the commit rule every item outcome follows: the
// checkpoint row is written first, the in-memory aggregate second, and
// the progress event last. A crash can therefore lose display state but
// never recorded work, and the aggregate never counts an item the store
// does not know about.
type recorder struct {
	// store is the checkpoint store rows are committed to.
	store *checkpoint.Store

	// sink receives progress events.
	sink progress.Sink

	// clk supplies event timestamps.
	clk clock.Clock
}

// countDone folds one Done item into the aggregate and announces it.
// The caller has already committed the row via MarkDone, or is replaying
// a row committed by an earlier invocation when reused is true.
func (r recorder) countDone(state *model.CrawlState, item model.WorkItem, reused bool) {
	state.AddDone(reused)
	outcome := progress.OutcomeDone
	if reused {
		outcome = progress.OutcomeReused
	}
	r.emitItem(state, item, outcome, model.ErrorKindUnknown, "")
}

// markFailed commits a terminal failure for the item. Pages the server
// reports absent count as skips rather than failures, because a missing
// page is a property of the site. The returned error is non-nil only
// when the store write fails, which aborts the run.
func (r recorder) markFailed(ctx context.Context, state *model.CrawlState, item model.WorkItem, kind model.ErrorKind, msg string, attempts int) error {
	if err := r.store.MarkFailed(ctx, item.Key, kind, msg, attempts); err != nil {
		return err
	}

	if kind == model.ErrorKindNotFound {
		state.AddSkip(model.SkippedItem{Key: item.Key, URL: item.URL, Reason: msg})
		r.emitItem(state, item, progress.OutcomeSkipped, kind, msg)
		return nil
	}

	state.AddFailure(model.FailedItem{
		Key:     item.Key,
		URL:     item.URL,
		Role:    item.Role,
		Kind:    kind,
		Message: msg,
		At:      r.clk.Now(),
	})
	r.emitItem(state, item, progress.OutcomeFailed, kind, msg)
	return nil
}

// replayTerminal folds an item finished by an earlier invocation back
// into the aggregate without touching its row. The state is rebuilt
// fresh on every invocation, so the summary of a resumed run has to
// re-count work that was already committed.
func (r recorder) replayTerminal(state *model.CrawlState, item model.WorkItem) {
	switch item.Status {
	case model.StatusDone:
		r.countDone(state, item, true)
	case model.StatusFailed:
		if item.ErrorKind == model.ErrorKindNotFound {
			state.AddSkip(model.SkippedItem{Key: item.Key, URL: item.URL, Reason: item.ErrorMessage})
			r.emitItem(state, item, progress.OutcomeSkipped, item.ErrorKind, item.ErrorMessage)
			return
		}
		state.AddFailure(model.FailedItem{
			Key:     item.Key,
			URL:     item.URL,
			Role:    item.Role,
			Kind:    item.ErrorKind,
			Message: item.ErrorMessage,
			At:      item.UpdatedAt,
		})
		r.emitItem(state, item, progress.OutcomeFailed, item.ErrorKind, item.ErrorMessage)
	}
}

// advancePhase moves the run from the given phase to the next one, in
// the store first and the state second. A run resumed past from is left
// alone, so phases only ever move forward.
func (r recorder) advancePhase(ctx context.Context, state *model.CrawlState, from, to model.Phase) error {
	if state.Phase() != from {
		return nil
	}
	if err := r.store.SetPhase(ctx, state.RunID, to); err != nil {
		return err
	}
	state.SetPhase(to)
	r.sink.Record(progress.Event{
		Stage: progress.StagePhase,
		At:    r.clk.Now(),
		RunID: state.RunID,
		Phase: to,
	})
	return nil
}

// emitItem sends the terminal event for one work item.
func (r recorder) emitItem(state *model.CrawlState, item model.WorkItem, outcome progress.Outcome, kind model.ErrorKind, msg string) {
	done, failed, skipped := state.Progress()
	namespaces, classes := state.Totals()
	r.sink.Record(progress.Event{
		Stage:   progress.StageItem,
		At:      r.clk.Now(),
		RunID:   state.RunID,
		Key:     item.Key,
		URL:     item.URL,
		Role:    item.Role,
		Outcome: outcome,
		Kind:    kind,
		Message: msg,
		Done:    done + failed + skipped,
		Total:   namespaces + classes,
	})
}

// emitArtifact announces one written artifact file.
func (r recorder) emitArtifact(state *model.CrawlState, path string) {
	r.sink.Record(progress.Event{
		Stage:   progress.StageArtifact,
		At:      r.clk.Now(),
		RunID:   state.RunID,
		Message: path,
	})
}

// fetchAttempts reads the attempt count out of a classified fetch error,
// so the item row charges the attempts that were actually spent.
func fetchAttempts(err error) int {
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Attempts
	}
	return 1
}

// DiscoverStep walks the fixed two-level topology: it fetches the index
// page, then every namespace page, and seeds the class work list the
// extraction pool will drain. Pages already committed by an earlier
// invocation are reused from the store without a fetch.
//
// Design decision: Discovery is one step rather than separate index and
// namespace steps because:
// 1. Namespace fetches cannot start before the index listing exists
// 2. The class work list is complete only once every namespace page was
//    processed, and the phase transition hangs on exactly that
// 3. A single step keeps the reuse-or-fetch decision in one place
type DiscoverStep struct {
	// store is the checkpoint store holding the work list.
	store *checkpoint.Store

	// source produces pages, from the network or saved files.
	source fetch.Source

	// extractor parses fetched pages into listings.
	extractor *extract.Extractor

	// rec commits item outcomes.
	rec recorder

	// concurrency bounds the namespace page fan-out.
	concurrency int

	// retryFailed requeues items left Failed by a previous invocation
	// once, before any work is scheduled.
	retryFailed bool

	// logger for structured logging.
	logger *slog.Logger
}

// DiscoverStepOption configures a DiscoverStep.
type DiscoverStepOption func(*DiscoverStep)

// WithDiscoverConcurrency sets how many namespace pages may be in flight
// at once. Workers share the request gate, so this mainly overlaps
// parsing with fetch latency.
func WithDiscoverConcurrency(n int) DiscoverStepOption {
	return func(s *DiscoverStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDiscoverRetryFailed controls whether previously failed items are
// requeued at the start of the invocation. Default is true.
func WithDiscoverRetryFailed(retry bool) DiscoverStepOption {
	return func(s *DiscoverStep) {
		s.retryFailed = retry
	}
}

// WithDiscoverSink sets the progress sink for the discovery step.
func WithDiscoverSink(sink progress.Sink) DiscoverStepOption {
	return func(s *DiscoverStep) {
		if sink != nil {
			s.rec.sink = sink
		}
	}
}

// WithDiscoverClock sets the clock used for timestamps.
func WithDiscoverClock(clk clock.Clock) DiscoverStepOption {
	return func(s *DiscoverStep) {
		if clk != nil {
			s.rec.clk = clk
		}
	}
}

// WithDiscoverLogger sets a custom logger for the discovery step.
func WithDiscoverLogger(logger *slog.Logger) DiscoverStepOption {
	return func(s *DiscoverStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDiscoverStep creates a new discovery step.
func NewDiscoverStep(store *checkpoint.Store, source fetch.Source, extractor *extract.Extractor, opts ...DiscoverStepOption) *DiscoverStep {
	s := &DiscoverStep{
		store:     store,
		source:    source,
		extractor: extractor,
		rec: recorder{
			store: store,
			sink:  progress.NopSink{},
			clk:   clock.NewSystem(),
		},
		concurrency: config.DefaultConcurrency,
		retryFailed: true,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discovery step.
func (s *DiscoverStep) Do(ctx context.Context, state *model.CrawlState) error {
	if s.retryFailed {
		n, err := s.store.ResetFailed(ctx)
		if err != nil {
			return fmt.Errorf("failed to requeue failed items: %w", err)
		}
		if n > 0 {
			s.logger.Info("requeued previously failed items", "count", n)
		}
	}

	index, err := s.indexListing(ctx, state)
	if err != nil {
		return err
	}

	items := make([]model.WorkItem, 0, len(index.Namespaces))
	for _, ref := range index.Namespaces {
		items = append(items, model.NewWorkItem(model.PageRoleNamespace, ref.URL, ""))
	}
	if _, err := s.store.Seed(ctx, items); err != nil {
		return fmt.Errorf("failed to seed namespace items: %w", err)
	}

	classTotal, err := s.namespacePass(ctx, state, index)
	if err != nil {
		return err
	}

	state.SetTotals(len(index.Namespaces), classTotal)
	if err := s.store.SetTotals(ctx, state.RunID, len(index.Namespaces), classTotal); err != nil {
		return fmt.Errorf("failed to record discovery totals: %w", err)
	}
	s.logger.Info("discovery complete",
		"namespaces", len(index.Namespaces),
		"classes", classTotal,
	)

	return s.rec.advancePhase(ctx, state, model.PhaseDiscovering, model.PhaseExtracting)
}

// indexListing returns the namespace listing of the index page, reusing
// the stored record when a previous invocation already extracted it. The
// index is the one page the run cannot proceed without, so its failures
// abort discovery instead of being recorded and skipped.
func (s *DiscoverStep) indexListing(ctx context.Context, state *model.CrawlState) (*model.IndexListing, error) {
	item := model.NewWorkItem(model.PageRoleIndex, state.RootURL, "")
	if _, err := s.store.Seed(ctx, []model.WorkItem{item}); err != nil {
		return nil, fmt.Errorf("failed to seed index item: %w", err)
	}

	stored, err := s.store.Item(ctx, item.Key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", checkpoint.ErrUnknownItem, item.Key)
	}

	switch stored.Status {
	case model.StatusDone:
		payload, err := s.store.Payload(ctx, item.Key)
		if err != nil {
			return nil, err
		}
		var listing model.IndexListing
		if err := json.Unmarshal(payload, &listing); err != nil {
			return nil, fmt.Errorf("failed to decode stored index listing: %w", err)
		}
		s.logger.Debug("index listing reused",
			"url", state.RootURL,
			"namespaces", len(listing.Namespaces),
		)
		return &listing, nil
	case model.StatusFailed:
		return nil, fmt.Errorf("index page failed in a previous invocation (%s): %s", stored.ErrorKind, stored.ErrorMessage)
	}

	page, err := s.source.Fetch(ctx, state.RootURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kind := fetch.Classify(err)
		if markErr := s.store.MarkFailed(ctx, item.Key, kind, err.Error(), fetchAttempts(err)); markErr != nil {
			return nil, markErr
		}
		return nil, fmt.Errorf("failed to fetch index page: %w", err)
	}
	page.Role = model.PageRoleIndex

	listing, warnings, err := s.extractor.Index(page)
	if err != nil {
		if markErr := s.store.MarkFailed(ctx, item.Key, model.ErrorKindParse, err.Error(), page.Attempts); markErr != nil {
			return nil, markErr
		}
		return nil, fmt.Errorf("failed to extract index page: %w", err)
	}
	state.AddWarnings(item.Key, warnings)

	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode index listing: %w", err)
	}
	if err := s.store.MarkDone(ctx, item.Key, payload, page.Hash, page.Attempts); err != nil {
		return nil, err
	}
	s.logger.Debug("index listing extracted",
		"url", state.RootURL,
		"namespaces", len(listing.Namespaces),
	)
	return listing, nil
}

// namespacePass processes every namespace page and seeds the class work
// list. Namespace pages are independent of each other, so they fan out
// through an errgroup once the index is known. Page failures are
// recorded and the pass carries on; only storage errors abort.
//
// The class total is counted over canonical keys so a class listed on
// two namespace pages is scheduled, and counted, once.
func (s *DiscoverStep) namespacePass(ctx context.Context, state *model.CrawlState, index *model.IndexListing) (int, error) {
	listings := make([]*model.NamespaceListing, len(index.Namespaces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ref := range index.Namespaces {
		g.Go(func() error {
			listing, err := s.namespaceListing(gctx, state, ref)
			if err != nil {
				return err
			}
			listings[i] = listing
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	classes := make(map[string]bool)
	for _, listing := range listings {
		if listing == nil {
			continue
		}
		for _, ref := range listing.Classes {
			classes[model.CanonicalKey(ref.URL)] = true
		}
	}
	return len(classes), nil
}

// namespaceListing produces the class listing of one namespace page,
// from the store when possible and the source otherwise. A nil listing
// with a nil error means the page terminally failed and the crawl
// proceeds without it.
func (s *DiscoverStep) namespaceListing(ctx context.Context, state *model.CrawlState, ref model.NamespaceRef) (*model.NamespaceListing, error) {
	key := model.CanonicalKey(ref.URL)
	stored, err := s.store.Item(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", checkpoint.ErrUnknownItem, key)
	}

	switch stored.Status {
	case model.StatusDone:
		payload, err := s.store.Payload(ctx, key)
		if err != nil {
			return nil, err
		}
		var listing model.NamespaceListing
		if err := json.Unmarshal(payload, &listing); err != nil {
			return nil, fmt.Errorf("failed to decode stored namespace listing for %s: %w", ref.Name, err)
		}
		// Re-seed so a crash between listing commit and class seeding
		// cannot orphan the stored listing.
		if err := s.seedClasses(ctx, &listing); err != nil {
			return nil, err
		}
		s.rec.countDone(state, *stored, true)
		return &listing, nil
	case model.StatusFailed:
		s.rec.replayTerminal(state, *stored)
		return nil, nil
	}

	page, err := s.source.Fetch(ctx, ref.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kind := fetch.Classify(err)
		s.logger.Warn("namespace page fetch failed",
			"namespace", ref.Name,
			"url", ref.URL,
			"kind", kind.String(),
		)
		if err := s.rec.markFailed(ctx, state, *stored, kind, err.Error(), fetchAttempts(err)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	page.Role = model.PageRoleNamespace

	listing, warnings, err := s.extractor.Namespace(page, ref)
	if err != nil {
		s.logger.Warn("namespace page extraction failed",
			"namespace", ref.Name,
			"url", ref.URL,
			"error", err,
		)
		if err := s.rec.markFailed(ctx, state, *stored, model.ErrorKindParse, err.Error(), page.Attempts); err != nil {
			return nil, err
		}
		return nil, nil
	}
	state.AddWarnings(key, warnings)

	if err := s.seedClasses(ctx, listing); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode namespace listing for %s: %w", ref.Name, err)
	}
	if err := s.store.MarkDone(ctx, key, payload, page.Hash, page.Attempts); err != nil {
		return nil, err
	}
	s.rec.countDone(state, *stored, false)
	return listing, nil
}

// seedClasses inserts the class items of one namespace listing into the
// work list. Items already present, from this pass or an earlier run,
// are left untouched.
func (s *DiscoverStep) seedClasses(ctx context.Context, listing *model.NamespaceListing) error {
	namespaceKey := model.CanonicalKey(listing.URL)
	items := make([]model.WorkItem, 0, len(listing.Classes))
	for _, ref := range listing.Classes {
		items = append(items, model.NewWorkItem(model.PageRoleClass, ref.URL, namespaceKey))
	}
	if _, err := s.store.Seed(ctx, items); err != nil {
		return fmt.Errorf("failed to seed class items for %s: %w", listing.Name, err)
	}
	return nil
}

// ExtractStep drains the Pending class items through a bounded worker
// pool. Every terminal outcome is committed to the checkpoint store
// before the in-memory aggregate sees it, and a partial dataset snapshot
// is flushed every few completions so an interrupted run still leaves a
// loadable artifact behind.
type ExtractStep struct {
	// store is the checkpoint store holding the work list.
	store *checkpoint.Store

	// source produces pages, from the network or saved files.
	source fetch.Source

	// extractor parses fetched pages into class records.
	extractor *extract.Extractor

	// artifacts writes dataset snapshots. May be nil when periodic
	// snapshots are disabled.
	artifacts *report.ArtifactWriter

	// rec commits item outcomes.
	rec recorder

	// concurrency bounds the worker pool.
	concurrency int

	// snapshotEvery is the snapshot cadence in completed items. Zero
	// disables periodic snapshots.
	snapshotEvery int

	// logger for structured logging.
	logger *slog.Logger

	// mu guards the snapshot counter across workers.
	mu            sync.Mutex
	sinceSnapshot int
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractConcurrency sets the number of extract workers. Workers
// share the request gate, so more workers overlap parsing rather than
// multiplying request rate.
func WithExtractConcurrency(n int) ExtractStepOption {
	return func(s *ExtractStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithExtractSnapshotEvery sets how many completed items trigger a
// dataset snapshot flush. Zero disables periodic flushing; the final
// artifact at completion always happens.
func WithExtractSnapshotEvery(n int) ExtractStepOption {
	return func(s *ExtractStep) {
		if n >= 0 {
			s.snapshotEvery = n
		}
	}
}

// WithExtractSink sets the progress sink for the extraction step.
func WithExtractSink(sink progress.Sink) ExtractStepOption {
	return func(s *ExtractStep) {
		if sink != nil {
			s.rec.sink = sink
		}
	}
}

// WithExtractClock sets the clock used for timestamps.
func WithExtractClock(clk clock.Clock) ExtractStepOption {
	return func(s *ExtractStep) {
		if clk != nil {
			s.rec.clk = clk
		}
	}
}

// WithExtractLogger sets a custom logger for the extraction step.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewExtractStep creates a new extraction step. artifacts may be nil
// when periodic snapshots are not wanted.
func NewExtractStep(store *checkpoint.Store, source fetch.Source, extractor *extract.Extractor, artifacts *report.ArtifactWriter, opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		store:     store,
		source:    source,
		extractor: extractor,
		artifacts: artifacts,
		rec: recorder{
			store: store,
			sink:  progress.NopSink{},
			clk:   clock.NewSystem(),
		},
		concurrency:   config.DefaultConcurrency,
		snapshotEvery: config.DefaultSnapshotEvery,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extraction step.
func (s *ExtractStep) Do(ctx context.Context, state *model.CrawlState) error {
	if err := s.replayTerminalClasses(ctx, state); err != nil {
		return err
	}

	pending, err := s.pendingClasses(ctx)
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		refs, err := s.classRefs(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("extracting class pages",
			"pending", len(pending),
			"workers", s.concurrency,
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, item := range pending {
			g.Go(func() error {
				// Check for cancellation before starting
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				return s.processClass(gctx, state, item, refs[item.Key])
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return s.rec.advancePhase(ctx, state, model.PhaseExtracting, model.PhaseFinalizing)
}

// replayTerminalClasses folds class items finished by earlier
// invocations back into the fresh aggregate, so a resumed run reports
// cumulative counts rather than only this invocation's work.
func (s *ExtractStep) replayTerminalClasses(ctx context.Context, state *model.CrawlState) error {
	for _, status := range []model.Status{model.StatusDone, model.StatusFailed} {
		items, err := s.store.ItemsByStatus(ctx, status)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.Role != model.PageRoleClass {
				continue
			}
			s.rec.replayTerminal(state, item)
		}
	}
	return nil
}

// pendingClasses returns the class items still waiting for work, in key
// order so scheduling is deterministic.
func (s *ExtractStep) pendingClasses(ctx context.Context) ([]model.WorkItem, error) {
	items, err := s.store.ItemsByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, err
	}
	pending := make([]model.WorkItem, 0, len(items))
	for _, item := range items {
		if item.Role == model.PageRoleClass {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// classRefs rebuilds the class identity map from the stored namespace
// listings. The refs carry the short name and listing description that
// class page extraction uses as fallbacks.
func (s *ExtractStep) classRefs(ctx context.Context) (map[string]model.ClassRef, error) {
	payloads, err := s.store.DonePayloads(ctx, model.PageRoleNamespace)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]model.ClassRef)
	for _, p := range payloads {
		var listing model.NamespaceListing
		if err := json.Unmarshal(p.Record, &listing); err != nil {
			return nil, fmt.Errorf("failed to decode stored namespace listing %s: %w", p.Key, err)
		}
		for _, ref := range listing.Classes {
			key := model.CanonicalKey(ref.URL)
			if _, ok := refs[key]; !ok {
				refs[key] = ref
			}
		}
	}
	return refs, nil
}

// processClass takes one pending class item to a terminal state: fetch,
// extract, commit. Fetch and parse problems end the item, not the run.
func (s *ExtractStep) processClass(ctx context.Context, state *model.CrawlState, item model.WorkItem, ref model.ClassRef) error {
	if ref.URL == "" {
		// No stored listing covers this item; identity falls back to
		// what the page itself carries.
		ref = model.ClassRef{URL: item.URL}
	}

	page, err := s.source.Fetch(ctx, item.URL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		kind := fetch.Classify(err)
		s.logger.Warn("class page fetch failed",
			"url", item.URL,
			"kind", kind.String(),
		)
		if err := s.rec.markFailed(ctx, state, item, kind, err.Error(), fetchAttempts(err)); err != nil {
			return err
		}
		return s.maybeSnapshot(ctx, state)
	}
	page.Role = model.PageRoleClass

	class, warnings, err := s.extractor.Class(page, ref)
	if err != nil {
		s.logger.Warn("class page extraction failed",
			"url", item.URL,
			"error", err,
		)
		if err := s.rec.markFailed(ctx, state, item, model.ErrorKindParse, err.Error(), page.Attempts); err != nil {
			return err
		}
		return s.maybeSnapshot(ctx, state)
	}
	state.AddWarnings(item.Key, warnings)

	payload, err := json.Marshal(class)
	if err != nil {
		return fmt.Errorf("failed to encode class record for %s: %w", item.URL, err)
	}
	if err := s.store.MarkDone(ctx, item.Key, payload, page.Hash, page.Attempts); err != nil {
		return err
	}
	s.rec.countDone(state, item, false)
	s.logger.Debug("class page extracted", "class", class.FullName, "url", item.URL)
	return s.maybeSnapshot(ctx, state)
}

// maybeSnapshot flushes a partial dataset after every snapshotEvery
// terminal items. The flush reuses the finalize assembly, so an
// interrupted run leaves behind a loadable artifact covering everything
// extracted so far, under the same path the final artifact will take.
func (s *ExtractStep) maybeSnapshot(ctx context.Context, state *model.CrawlState) error {
	if s.snapshotEvery <= 0 || s.artifacts == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinceSnapshot++
	if s.sinceSnapshot < s.snapshotEvery {
		return nil
	}
	s.sinceSnapshot = 0

	dataset, _, err := assembleDataset(ctx, s.store, state)
	if err != nil {
		return err
	}
	path, err := s.artifacts.WriteDataset(dataset, state.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to write dataset snapshot: %w", err)
	}
	state.DatasetPath = path

	done, failed, skipped := state.Progress()
	s.logger.Info("dataset snapshot written",
		"path", path,
		"done", done,
		"failed", failed+skipped,
	)
	s.rec.emitArtifact(state, path)
	return nil
}

// FinalizeStep assembles the stored records into the dataset artifact
// and closes out the run. It never fetches: everything it needs was
// committed by the earlier steps, this invocation or a previous one,
// which is what makes re-finalizing a finished store produce identical
// bytes.
type FinalizeStep struct {
	// store is the checkpoint store holding the extracted records.
	store *checkpoint.Store

	// artifacts writes the dataset and class list files.
	artifacts *report.ArtifactWriter

	// rec commits the terminal phase and announces artifacts.
	rec recorder

	// classList enables the companion class list artifact.
	classList bool

	// logger for structured logging.
	logger *slog.Logger
}

// FinalizeStepOption configures a FinalizeStep.
type FinalizeStepOption func(*FinalizeStep)

// WithFinalizeClassList enables writing the class list artifact next to
// the dataset.
func WithFinalizeClassList(enabled bool) FinalizeStepOption {
	return func(s *FinalizeStep) {
		s.classList = enabled
	}
}

// WithFinalizeSink sets the progress sink for the finalize step.
func WithFinalizeSink(sink progress.Sink) FinalizeStepOption {
	return func(s *FinalizeStep) {
		if sink != nil {
			s.rec.sink = sink
		}
	}
}

// WithFinalizeClock sets the clock that stamps the run completion.
func WithFinalizeClock(clk clock.Clock) FinalizeStepOption {
	return func(s *FinalizeStep) {
		if clk != nil {
			s.rec.clk = clk
		}
	}
}

// WithFinalizeLogger sets a custom logger for the finalize step.
func WithFinalizeLogger(logger *slog.Logger) FinalizeStepOption {
	return func(s *FinalizeStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFinalizeStep creates a new finalize step.
func NewFinalizeStep(store *checkpoint.Store, artifacts *report.ArtifactWriter, opts ...FinalizeStepOption) *FinalizeStep {
	s := &FinalizeStep{
		store:     store,
		artifacts: artifacts,
		rec: recorder{
			store: store,
			sink:  progress.NopSink{},
			clk:   clock.NewSystem(),
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *FinalizeStep) Name() string {
	return "finalize"
}

// Do executes the finalize step.
func (s *FinalizeStep) Do(ctx context.Context, state *model.CrawlState) error {
	dataset, listings, err := assembleDataset(ctx, s.store, state)
	if err != nil {
		return err
	}

	datasetPath, err := s.artifacts.WriteDataset(dataset, state.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to write dataset artifact: %w", err)
	}
	state.DatasetPath = datasetPath
	s.rec.emitArtifact(state, datasetPath)
	s.logger.Info("dataset artifact written",
		"path", datasetPath,
		"namespaces", dataset.Metadata.TotalNamespaces,
		"classes", dataset.Metadata.TotalClasses,
	)

	if s.classList {
		list, listReport := model.BuildClassList(listings, state.StartedAt, state.RootURL, state.RootURL)
		for _, skip := range listReport.Skips {
			s.logger.Debug("class list entry dropped", "item", skip.Item, "reason", skip.Reason)
		}
		for _, raw := range listReport.InvalidURLs {
			s.logger.Warn("class list entry has an invalid URL", "url", raw)
		}

		listPath, err := s.artifacts.WriteClassList(list)
		if err != nil {
			return fmt.Errorf("failed to write class list artifact: %w", err)
		}
		state.ClassListPath = listPath
		s.rec.emitArtifact(state, listPath)
		s.logger.Info("class list artifact written",
			"path", listPath,
			"classes", list.Metadata.TotalClasses,
		)
	}

	phase := state.Finish(s.rec.clk.Now())
	if err := s.store.FinishRun(ctx, state.RunID, state.Summary()); err != nil {
		return fmt.Errorf("failed to record run completion: %w", err)
	}

	done, failed, skipped := state.Progress()
	s.logger.Info("crawl finished",
		"phase", phase.String(),
		"done", done,
		"failed", failed,
		"skipped", skipped,
	)
	return nil
}

// assembleDataset rebuilds the dataset from the records the store holds
// for this run's root. The same assembly backs periodic snapshots and
// the final artifact, so both agree byte for byte once the work list
// stops changing.
//
// The store is shared between roots, so membership is decided by
// reachability: only namespaces the run's index listing names, and only
// classes seeded under those namespaces, enter the dataset.
func assembleDataset(ctx context.Context, store *checkpoint.Store, state *model.CrawlState) (*model.Dataset, []model.NamespaceListing, error) {
	indexPayload, err := store.Payload(ctx, model.CanonicalKey(state.RootURL))
	if err != nil {
		return nil, nil, err
	}
	if indexPayload == nil {
		return nil, nil, fmt.Errorf("no stored index listing for %s: discovery has not completed", state.RootURL)
	}
	var index model.IndexListing
	if err := json.Unmarshal(indexPayload, &index); err != nil {
		return nil, nil, fmt.Errorf("failed to decode stored index listing: %w", err)
	}
	wanted := make(map[string]bool, len(index.Namespaces))
	for _, ref := range index.Namespaces {
		wanted[model.CanonicalKey(ref.URL)] = true
	}

	classPayloads, err := store.DonePayloads(ctx, model.PageRoleClass)
	if err != nil {
		return nil, nil, err
	}
	classes := make(map[string][]model.Class)
	for _, p := range classPayloads {
		if !wanted[p.NamespaceKey] {
			continue
		}
		var class model.Class
		if err := json.Unmarshal(p.Record, &class); err != nil {
			return nil, nil, fmt.Errorf("failed to decode stored class record %s: %w", p.Key, err)
		}
		classes[p.NamespaceKey] = append(classes[p.NamespaceKey], class)
	}

	namespacePayloads, err := store.DonePayloads(ctx, model.PageRoleNamespace)
	if err != nil {
		return nil, nil, err
	}

	dataset := model.NewDataset(state.StartedAt, state.RootURL)
	listings := make([]model.NamespaceListing, 0, len(namespacePayloads))
	for _, p := range namespacePayloads {
		if !wanted[p.Key] {
			continue
		}
		var listing model.NamespaceListing
		if err := json.Unmarshal(p.Record, &listing); err != nil {
			return nil, nil, fmt.Errorf("failed to decode stored namespace listing %s: %w", p.Key, err)
		}
		listings = append(listings, listing)

		namespace := model.Namespace{
			Name:        listing.Name,
			URL:         listing.URL,
			Description: listing.Description,
			Classes:     classes[p.Key],
		}
		if namespace.Classes == nil {
			namespace.Classes = []model.Class{}
		}
		dataset.Namespaces = append(dataset.Namespaces, namespace)
	}

	dataset.Sort()
	dataset.Recount()
	return dataset, listings, nil
}

// DefaultPipelineConfig holds configuration for the default crawl
// pipeline.
type DefaultPipelineConfig struct {
	// OutputDir is where dataset artifacts are written.
	OutputDir string

	// Concurrency bounds the worker pools of both discovery and
	// extraction.
	Concurrency int

	// SnapshotEvery is the dataset snapshot cadence in completed items.
	SnapshotEvery int

	// RetryFailed requeues previously failed items once at the start of
	// the invocation.
	RetryFailed bool

	// ClassList enables the companion class list artifact.
	ClassList bool

	// Sink receives progress events from every step.
	Sink progress.Sink

	// Clock supplies timestamps for events and the run completion.
	Clock clock.Clock

	// Logger is handed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineOutputDir sets the artifact output directory.
func WithPipelineOutputDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if dir != "" {
			c.OutputDir = dir
		}
	}
}

// WithPipelineConcurrency sets the worker pool bound for the pipeline.
func WithPipelineConcurrency(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if n > 0 {
			c.Concurrency = n
		}
	}
}

// WithPipelineSnapshotEvery sets the dataset snapshot cadence.
func WithPipelineSnapshotEvery(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if n >= 0 {
			c.SnapshotEvery = n
		}
	}
}

// WithPipelineRetryFailed controls requeueing of previously failed
// items.
func WithPipelineRetryFailed(retry bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.RetryFailed = retry
	}
}

// WithPipelineClassList enables the class list artifact.
func WithPipelineClassList(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ClassList = enabled
	}
}

// WithPipelineSink sets the progress sink handed to every step.
func WithPipelineSink(sink progress.Sink) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if sink != nil {
			c.Sink = sink
		}
	}
}

// WithPipelineClock sets the clock handed to every step.
func WithPipelineClock(clk clock.Clock) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if clk != nil {
			c.Clock = clk
		}
	}
}

// WithPipelineLogger sets the logger handed to every step.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// DefaultPipeline creates a pipeline with the standard crawl steps in
// order: discover, extract, finalize.
//
// Design decision: We provide a default pipeline because:
// 1. Every crawl wants the same three stages
// 2. It reduces boilerplate in the CLI
// 3. It keeps the step wiring, which several knobs thread through, in
//    one place
//
// The rootURL is the index page the crawl starts from; relative links
// are resolved against it when a page carries no URL of its own. The
// first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineConcurrency,
// etc).
func DefaultPipeline(store *checkpoint.Store, source fetch.Source, rootURL string, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		OutputDir:     config.DefaultOutputDir,
		Concurrency:   config.DefaultConcurrency,
		SnapshotEvery: config.DefaultSnapshotEvery,
		RetryFailed:   true,
		Sink:          progress.NopSink{},
		Clock:         clock.NewSystem(),
		Logger:        slog.Default(),
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	extractor := extract.New(rootURL, extract.WithLogger(cfg.Logger))
	artifacts := report.NewArtifactWriter(cfg.OutputDir)

	// Add steps in crawl order
	p.AddSteps(
		NewDiscoverStep(store, source, extractor,
			WithDiscoverConcurrency(cfg.Concurrency),
			WithDiscoverRetryFailed(cfg.RetryFailed),
			WithDiscoverSink(cfg.Sink),
			WithDiscoverClock(cfg.Clock),
			WithDiscoverLogger(cfg.Logger),
		),
		NewExtractStep(store, source, extractor, artifacts,
			WithExtractConcurrency(cfg.Concurrency),
			WithExtractSnapshotEvery(cfg.SnapshotEvery),
			WithExtractSink(cfg.Sink),
			WithExtractClock(cfg.Clock),
			WithExtractLogger(cfg.Logger),
		),
		NewFinalizeStep(store, artifacts,
			WithFinalizeClassList(cfg.ClassList),
			WithFinalizeSink(cfg.Sink),
			WithFinalizeClock(cfg.Clock),
			WithFinalizeLogger(cfg.Logger),
		),
	)

	return p
}
