package model

import (
	"sync"
	"testing"
	"time"
)

func TestCrawlStateCounters(t *testing.T) {
	t.Parallel()

	t.Run("done splits fetched and reused", func(t *testing.T) {
		t.Parallel()
		state := NewCrawlState("run-1", "https://rpgbakin.com/csreference/doc/ja/namespaces.html", time.Now())
		state.AddDone(false)
		state.AddDone(false)
		state.AddDone(true)

		summary := state.Summary()
		if summary.DoneCount != 3 {
			t.Errorf("expected 3 done, got %d", summary.DoneCount)
		}
		if summary.FetchedCount != 2 {
			t.Errorf("expected 2 fetched, got %d", summary.FetchedCount)
		}
		if summary.ReusedCount != 1 {
			t.Errorf("expected 1 reused, got %d", summary.ReusedCount)
		}
	})

	t.Run("concurrent updates are counted exactly", func(t *testing.T) {
		t.Parallel()
		state := NewCrawlState("run-1", "https://rpgbakin.com/", time.Now())

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				state.AddDone(false)
				state.AddWarnings("key", []string{"section unreadable"})
			}()
		}
		wg.Wait()

		summary := state.Summary()
		if summary.DoneCount != 50 {
			t.Errorf("expected 50 done, got %d", summary.DoneCount)
		}
		if summary.WarningCount != 50 {
			t.Errorf("expected 50 warnings, got %d", summary.WarningCount)
		}
	})

	t.Run("empty warning list is ignored", func(t *testing.T) {
		t.Parallel()
		state := NewCrawlState("run-1", "https://rpgbakin.com/", time.Now())
		state.AddWarnings("key", nil)
		if got := len(state.Warnings()); got != 0 {
			t.Errorf("expected no warnings, got %d", got)
		}
	})
}

func TestCrawlStateFinish(t *testing.T) {
	t.Parallel()

	t.Run("clean run finishes done", func(t *testing.T) {
		t.Parallel()
		state := NewCrawlState("run-1", "https://rpgbakin.com/", time.Now())
		state.AddDone(false)

		if got := state.Finish(time.Now()); got != PhaseDone {
			t.Errorf("expected done, got %v", got)
		}
	})

	t.Run("any failure finishes done_with_errors", func(t *testing.T) {
		t.Parallel()
		state := NewCrawlState("run-1", "https://rpgbakin.com/", time.Now())
		state.AddFailure(FailedItem{
			Key:     "https://rpgbakin.com/class_a.html",
			URL:     "https://rpgbakin.com/class_a.html",
			Role:    PageRoleClass,
			Kind:    ErrorKindNetwork,
			Message: "retries exhausted",
		})

		if got := state.Finish(time.Now()); got != PhaseDoneWithErrors {
			t.Errorf("expected done_with_errors, got %v", got)
		}
	})

	t.Run("a skipped page also finishes done_with_errors", func(t *testing.T) {
		t.Parallel()
		state := NewCrawlState("run-1", "https://rpgbakin.com/", time.Now())
		state.AddSkip(SkippedItem{
			Key:    "https://rpgbakin.com/class_gone.html",
			URL:    "https://rpgbakin.com/class_gone.html",
			Reason: "HTTP 404",
		})

		if got := state.Finish(time.Now()); got != PhaseDoneWithErrors {
			t.Errorf("expected done_with_errors, got %v", got)
		}
	})
}

func TestCrawlStateSummary(t *testing.T) {
	t.Parallel()

	startedAt := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	state := NewCrawlState("run-7", "https://rpgbakin.com/csreference/doc/ja/namespaces.html", startedAt)
	state.SetTotals(3, 12)
	state.AddDone(false)
	state.AddFailure(FailedItem{Key: "k1", URL: "u1", Kind: ErrorKindParse, Message: "title block missing"})
	state.AddSkip(SkippedItem{Key: "k2", URL: "u2", Reason: "HTTP 404"})
	state.Finish(startedAt.Add(time.Minute))

	summary := state.Summary()
	if summary.RunID != "run-7" {
		t.Errorf("unexpected run id: %s", summary.RunID)
	}
	if summary.Phase != "done_with_errors" {
		t.Errorf("unexpected phase: %s", summary.Phase)
	}
	if summary.TotalNamespaces != 3 || summary.TotalClasses != 12 {
		t.Errorf("unexpected totals: %d, %d", summary.TotalNamespaces, summary.TotalClasses)
	}
	if summary.FailedCount != 1 || summary.NotFoundCount != 1 {
		t.Errorf("unexpected failure counts: %d, %d", summary.FailedCount, summary.NotFoundCount)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Key != "k1" {
		t.Errorf("expected failed list with k1, got %v", summary.Failed)
	}
	if summary.FinishedAt.Sub(summary.StartedAt) != time.Minute {
		t.Errorf("unexpected elapsed: %v", summary.FinishedAt.Sub(summary.StartedAt))
	}

	t.Run("summary lists are copies", func(t *testing.T) {
		t.Parallel()
		summary.Failed[0].Key = "mutated"
		if state.Failures()[0].Key != "k1" {
			t.Error("expected state to be isolated from summary mutation")
		}
	})
}
