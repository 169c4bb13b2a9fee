package analysis

import (
	"context"
	"sync"
)

// Recomputer runs analyses off the caller's goroutine and keeps only the
// newest. Each Submit cancels the analysis in flight; a result is published
// only if no newer Submit happened while it ran.
type Recomputer struct {
	Analyzer Analyzer

	// OnResult, if set, is called with every published result. It runs with
	// the Recomputer locked and must not call Submit.
	OnResult func(*Region, error)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	latest     *Region
	latestErr  error
	wg         sync.WaitGroup
}

// NewRecomputer wraps an analyzer.
func NewRecomputer(a Analyzer, onResult func(*Region, error)) *Recomputer {
	return &Recomputer{Analyzer: a, OnResult: onResult}
}

// Submit starts analyzing r and supersedes any earlier submission.
func (rc *Recomputer) Submit(ctx context.Context, r *Region) {
	rc.mu.Lock()
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.generation++
	gen := rc.generation
	cctx, cancel := context.WithCancel(ctx)
	rc.cancel = cancel
	rc.wg.Add(1)
	rc.mu.Unlock()

	go func() {
		defer rc.wg.Done()
		defer cancel()

		res, err := rc.Analyzer.Analyze(cctx, r)

		rc.mu.Lock()
		defer rc.mu.Unlock()

		if gen != rc.generation || cctx.Err() != nil {
			// Superseded
			return
		}

		rc.latest, rc.latestErr = res, err
		if rc.OnResult != nil {
			rc.OnResult(res, err)
		}
	}()
}

// Latest returns the newest published result, or nil before any.
func (rc *Recomputer) Latest() (*Region, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.latest, rc.latestErr
}

// Wait blocks until every submitted analysis has finished or been abandoned.
func (rc *Recomputer) Wait() {
	rc.wg.Wait()
}

// Close cancels the analysis in flight and waits for it.
func (rc *Recomputer) Close() {
	rc.mu.Lock()
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.generation++
	rc.mu.Unlock()

	rc.Wait()
}
