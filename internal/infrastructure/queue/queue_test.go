package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/processing"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/queue"
)

type memoryRepo struct {
	mu     sync.Mutex
	status map[string]video.ProcessingStatus
	errors map[string]string
}

func newMemoryRepo(ids ...string) *memoryRepo {
	r := &memoryRepo{
		status: make(map[string]video.ProcessingStatus),
		errors: make(map[string]string),
	}
	for _, id := range ids {
		r.status[id] = video.ProcessingPending
	}
	return r
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*video.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.status[id]; !ok {
		return nil, video.ErrNotFound
	}
	return &video.Video{ID: id}, nil
}

func (r *memoryRepo) UpdateProgress(_ context.Context, id string, status video.ProcessingStatus, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[id] = status
	return nil
}

func (r *memoryRepo) Finish(_ context.Context, id string, _ video.SensitivityStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[id] = video.ProcessingCompleted
	return nil
}

func (r *memoryRepo) MarkFailed(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[id] = video.ProcessingFailed
	r.errors[id] = reason
	return nil
}

func (r *memoryRepo) statusOf(id string) video.ProcessingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[id]
}

// eventSink forwards terminal events to a channel so tests can wait on them.
type eventSink struct {
	terminal chan processing.Event
	started  chan string
}

func newEventSink() *eventSink {
	return &eventSink{
		terminal: make(chan processing.Event, 16),
		started:  make(chan string, 16),
	}
}

func (s *eventSink) Publish(videoID string, event processing.Event) {
	if event.Status == video.ProcessingInProgress && event.Progress == 0 {
		select {
		case s.started <- videoID:
		default:
		}
	}
	if event.Status == video.ProcessingCompleted || event.Status == video.ProcessingFailed {
		s.terminal <- event
	}
}

type safeClassifier struct{}

func (safeClassifier) Classify(context.Context, string) (video.SensitivityStatus, error) {
	return video.SensitivitySafe, nil
}

func newPool(repo *memoryRepo, sink *eventSink, workers, depth int, delay time.Duration) *queue.Pool {
	processor := processing.NewProcessor(repo, sink, safeClassifier{}, delay, zerolog.Nop())
	return queue.NewPool(processor, workers, depth, zerolog.Nop())
}

func waitTerminal(t *testing.T, sink *eventSink, n int) []processing.Event {
	t.Helper()
	var events []processing.Event
	for len(events) < n {
		select {
		case e := <-sink.terminal:
			events = append(events, e)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d terminal events", len(events), n)
		}
	}
	return events
}

func TestPool_ProcessesEnqueuedJobs(t *testing.T) {
	repo := newMemoryRepo("vid_1", "vid_2", "vid_3")
	sink := newEventSink()
	pool := newPool(repo, sink, 2, 10, 0)
	pool.Start()
	defer pool.Shutdown()

	pool.Enqueue("vid_1")
	pool.Enqueue("vid_2")
	pool.Enqueue("vid_3")

	waitTerminal(t, sink, 3)
	for _, id := range []string{"vid_1", "vid_2", "vid_3"} {
		if got := repo.statusOf(id); got != video.ProcessingCompleted {
			t.Errorf("%s status = %q, want completed", id, got)
		}
	}
}

func TestPool_CancelAbortsInflightJob(t *testing.T) {
	repo := newMemoryRepo("vid_slow")
	sink := newEventSink()
	pool := newPool(repo, sink, 1, 10, 30*time.Second)
	pool.Start()
	defer pool.Shutdown()

	pool.Enqueue("vid_slow")

	select {
	case <-sink.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	pool.Cancel("vid_slow")

	events := waitTerminal(t, sink, 1)
	if events[0].Status != video.ProcessingFailed {
		t.Fatalf("terminal status = %q, want failed", events[0].Status)
	}
	if got := repo.statusOf("vid_slow"); got != video.ProcessingFailed {
		t.Errorf("persisted status = %q, want failed", got)
	}
	if repo.errors["vid_slow"] == "" {
		t.Error("cancelled job should record a failure reason")
	}
}

func TestPool_FullQueueFailsJob(t *testing.T) {
	repo := newMemoryRepo("vid_1", "vid_2", "vid_overflow")
	sink := newEventSink()
	// One slow worker and a single-slot queue: the third enqueue overflows.
	pool := newPool(repo, sink, 1, 1, 30*time.Second)
	pool.Start()
	defer func() {
		pool.Cancel("vid_1")
		pool.Cancel("vid_2")
		pool.Shutdown()
	}()

	pool.Enqueue("vid_1")
	select {
	case <-sink.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first job never started")
	}
	pool.Enqueue("vid_2")
	pool.Enqueue("vid_overflow")

	deadline := time.After(5 * time.Second)
	for repo.statusOf("vid_overflow") != video.ProcessingFailed {
		select {
		case <-deadline:
			t.Fatalf("overflow job status = %q, want failed", repo.statusOf("vid_overflow"))
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPool_ShutdownDrains(t *testing.T) {
	repo := newMemoryRepo("vid_1")
	sink := newEventSink()
	pool := newPool(repo, sink, 1, 10, 0)
	pool.Start()

	pool.Enqueue("vid_1")
	waitTerminal(t, sink, 1)

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not return")
	}
}
