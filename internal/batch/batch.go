// Package batch runs queued single-image recognitions with a bounded pool of
// workers. Every job is one independent RecognizeImage call.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"facility/internal/facility"
	"facility/internal/logging"
	"facility/internal/queue"
)

// Recognizer is the part of the facility client the worker needs.
type Recognizer interface {
	RecognizeImage(ctx context.Context, img facility.Image, debug bool) (*facility.RecognitionResult, error)
}

// Tracker observes job progress. metrics.Batch implements it.
type Tracker interface {
	Started()
	Finished(outcome string)
}

const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeFailed    = "failed"
)

// Result is the outcome of one job.
type Result struct {
	Path  string
	Match *facility.RecognitionResult
	Err   error
}

// Outcome classifies r for metrics and reporting.
func (r Result) Outcome() string {
	switch {
	case r.Err != nil:
		return OutcomeFailed
	case r.Match.Matched():
		return OutcomeMatched
	default:
		return OutcomeUnmatched
	}
}

// Worker consumes TypeRecognize messages from a queue.
type Worker struct {
	Queue      queue.Queue
	Recognizer Recognizer
	Workers    int
	Log        logging.Logger
	Tracker    Tracker
	OnResult   func(Result)

	// Limit stops the worker after this many jobs have been taken from the
	// queue. Zero means unlimited.
	Limit int

	// Load turns a message body into an image. Defaults to facility.LoadImage.
	Load func(path string) (facility.Image, error)
}

// Run processes messages until ctx ends or Limit jobs have been taken.
// It returns the number of jobs processed.
//
// Each worker goroutine dequeues one message only after reserving a slot
// under Limit, so messages beyond the limit stay queued. A job already taken
// from the queue runs to completion even if ctx ends meanwhile.
func (w *Worker) Run(ctx context.Context) (int, error) {
	workers := w.Workers
	if workers <= 0 {
		workers = 1
	}
	log := w.Log
	if log == nil {
		log = logging.Nop()
	}
	load := w.Load
	if load == nil {
		load = facility.LoadImage
	}
	jobCtx := context.WithoutCancel(ctx)

	var (
		wg       sync.WaitGroup
		reserved atomic.Int64
		done     atomic.Int64
		errMu    sync.Mutex
		runErr   error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil && w.reserve(&reserved) {
				msg, err := w.Queue.Dequeue(ctx)
				if err != nil {
					reserved.Add(-1)
					if ctx.Err() == nil {
						errMu.Lock()
						runErr = errors.Join(runErr, fmt.Errorf("batch: dequeue: %w", err))
						errMu.Unlock()
					}
					return
				}
				if msg.Type != queue.TypeRecognize {
					reserved.Add(-1)
					log.Debug(ctx, "skipping message", "type", msg.Type)
					continue
				}
				path := string(msg.Body)
				res := w.process(jobCtx, load, path)
				if res.Err != nil {
					log.Warn(ctx, "recognition failed", "path", path, "error", res.Err)
				} else {
					log.Info(ctx, "recognition done", "path", path, "outcome", res.Outcome(), "score", res.Match.Score)
				}
				if w.OnResult != nil {
					w.OnResult(res)
				}
				done.Add(1)
			}
		}()
	}
	wg.Wait()

	return int(done.Load()), runErr
}

// reserve claims one job slot under Limit.
func (w *Worker) reserve(n *atomic.Int64) bool {
	if w.Limit <= 0 {
		return true
	}
	if n.Add(1) <= int64(w.Limit) {
		return true
	}
	n.Add(-1)
	return false
}

func (w *Worker) process(ctx context.Context, load func(string) (facility.Image, error), path string) Result {
	if w.Tracker != nil {
		w.Tracker.Started()
	}
	res := Result{Path: path}
	img, err := load(path)
	if err != nil {
		res.Err = err
	} else {
		res.Match, res.Err = w.Recognizer.RecognizeImage(ctx, img, false)
	}
	if w.Tracker != nil {
		w.Tracker.Finished(res.Outcome())
	}
	return res
}

// Enqueue publishes one recognize job per path.
func Enqueue(ctx context.Context, q queue.Queue, paths ...string) error {
	for _, p := range paths {
		if err := q.Publish(ctx, queue.Message{Type: queue.TypeRecognize, Body: []byte(p)}); err != nil {
			return fmt.Errorf("batch: enqueue %s: %w", p, err)
		}
	}
	return nil
}
