package batch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility/internal/facility"
	"facility/internal/queue"
)

type stubRecognizer struct {
	inflight atomic.Int32
	peak     atomic.Int32
}

func (s *stubRecognizer) RecognizeImage(_ context.Context, img facility.Image, _ bool) (*facility.RecognitionResult, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	switch img.Filename {
	case "boom":
		return nil, errors.New("HTTP 500")
	case "known":
		id := "I1"
		return &facility.RecognitionResult{InmateID: &id, Score: 0.9, Method: "cosine"}, nil
	default:
		return &facility.RecognitionResult{Method: "none"}, nil
	}
}

type countingTracker struct {
	mu       sync.Mutex
	started  int
	outcomes map[string]int
}

func (c *countingTracker) Started() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingTracker) Finished(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}

func fakeLoad(path string) (facility.Image, error) {
	if path == "missing" {
		return facility.Image{}, errors.New("no such file")
	}
	return facility.Image{Filename: path, Data: []byte(path)}, nil
}

func TestWorker_ProcessesUpToLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := queue.NewInMemory(16)
	paths := []string{"known", "unknown", "boom", "missing", "known", "unknown"}
	require.NoError(t, Enqueue(ctx, q, paths...))

	rec := &stubRecognizer{}
	tracker := &countingTracker{}
	var mu sync.Mutex
	var results []Result

	w := &Worker{
		Queue:      q,
		Recognizer: rec,
		Workers:    3,
		Limit:      len(paths),
		Tracker:    tracker,
		Load:       fakeLoad,
		OnResult: func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		},
	}

	n, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(paths), n)
	require.Len(t, results, len(paths))

	got := make([]string, 0, len(results))
	for _, r := range results {
		got = append(got, r.Path)
	}
	sort.Strings(got)
	want := append([]string(nil), paths...)
	sort.Strings(want)
	assert.Equal(t, want, got)

	assert.Equal(t, len(paths), tracker.started)
	assert.Equal(t, map[string]int{OutcomeMatched: 2, OutcomeUnmatched: 2, OutcomeFailed: 2}, tracker.outcomes)
	assert.LessOrEqual(t, rec.peak.Load(), int32(3))
}

func TestWorker_SkipsOtherMessageTypes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	q := queue.NewInMemory(4)
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "checkin", Body: []byte("x")}))
	require.NoError(t, Enqueue(ctx, q, "known"))

	var seen []string
	w := &Worker{Queue: q, Recognizer: &stubRecognizer{}, Limit: 1, Load: fakeLoad, OnResult: func(r Result) { seen = append(seen, r.Path) }}

	n, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"known"}, seen)
}

func TestWorker_LimitLeavesRestQueued(t *testing.T) {
	cases := []struct {
		workers, limit, queued int
	}{
		{workers: 1, limit: 1, queued: 3},
		{workers: 3, limit: 2, queued: 5},
		{workers: 4, limit: 4, queued: 4},
	}
	for _, tc := range cases {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		q := queue.NewInMemory(16)
		for i := 0; i < tc.queued; i++ {
			require.NoError(t, Enqueue(ctx, q, "unknown"))
		}

		w := &Worker{Queue: q, Recognizer: &stubRecognizer{}, Workers: tc.workers, Limit: tc.limit, Load: fakeLoad}
		n, err := w.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, tc.limit, n)

		left, err := q.Len(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, tc.queued-tc.limit, left, "workers=%d limit=%d", tc.workers, tc.limit)
		cancel()
	}
}

type slowRecognizer struct {
	started chan struct{}
	release chan struct{}
}

func (s *slowRecognizer) RecognizeImage(ctx context.Context, _ facility.Image, _ bool) (*facility.RecognitionResult, error) {
	s.started <- struct{}{}
	<-s.release
	return &facility.RecognitionResult{Method: "none"}, ctx.Err()
}

func TestWorker_FinishesTakenJobAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.NewInMemory(4)
	require.NoError(t, Enqueue(ctx, q, "a", "b"))

	rec := &slowRecognizer{started: make(chan struct{}, 1), release: make(chan struct{})}
	var results []Result
	w := &Worker{Queue: q, Recognizer: rec, Workers: 1, Load: fakeLoad, OnResult: func(r Result) { results = append(results, r) }}

	type ran struct {
		n   int
		err error
	}
	out := make(chan ran, 1)
	go func() {
		n, err := w.Run(ctx)
		out <- ran{n, err}
	}()

	<-rec.started
	cancel()
	close(rec.release)

	got := <-out
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.n)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err, "the job in hand is not cancelled")

	left, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, left)
}

func TestWorker_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w := &Worker{Queue: queue.NewInMemory(1), Recognizer: &stubRecognizer{}, Workers: 2}
	n, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResult_Outcome(t *testing.T) {
	id := "I1"
	assert.Equal(t, OutcomeFailed, Result{Err: errors.New("x")}.Outcome())
	assert.Equal(t, OutcomeMatched, Result{Match: &facility.RecognitionResult{InmateID: &id}}.Outcome())
	assert.Equal(t, OutcomeUnmatched, Result{Match: &facility.RecognitionResult{}}.Outcome())
	assert.Equal(t, OutcomeUnmatched, Result{}.Outcome())
}
