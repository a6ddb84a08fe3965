package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/processing"
)

// Pool runs the processing pipeline for enqueued videos on a fixed set of
// workers. Each in-flight job carries its own cancel func so a single video
// can be aborted without touching the rest of the queue.
type Pool struct {
	processor *processing.Processor
	jobs      chan string
	workers   int
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewPool(processor *processing.Processor, workers, depth int, log zerolog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		processor: processor,
		jobs:      make(chan string, depth),
		workers:   workers,
		log:       log.With().Str("component", "queue").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		inflight:  make(map[string]context.CancelFunc),
	}
}

// Start launches the workers. Call once.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info().Int("workers", p.workers).Int("depth", cap(p.jobs)).Msg("worker pool started")
}

// Enqueue hands a video to the pool. When the queue is full the job is
// dropped and the record is marked failed rather than blocking the upload
// request.
func (p *Pool) Enqueue(videoID string) {
	select {
	case p.jobs <- videoID:
		p.log.Debug().Str("video_id", videoID).Msg("enqueued")
	default:
		p.log.Error().Str("video_id", videoID).Msg("queue full, dropping job")
		go p.processor.Fail(context.Background(), videoID, "processing queue is full")
	}
}

// Cancel aborts the in-flight job for the given video, if any.
func (p *Pool) Cancel(videoID string) {
	p.mu.Lock()
	cancel, ok := p.inflight[videoID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown stops accepting work, cancels in-flight jobs and waits for the
// workers to drain.
func (p *Pool) Shutdown() {
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	p.log.Info().Msg("worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for videoID := range p.jobs {
		if p.ctx.Err() != nil {
			return
		}
		p.run(videoID)
	}
}

func (p *Pool) run(videoID string) {
	jobCtx, cancel := context.WithCancel(p.ctx)
	p.mu.Lock()
	p.inflight[videoID] = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.inflight, videoID)
		p.mu.Unlock()
	}()

	if err := p.processor.Process(jobCtx, videoID); err != nil {
		p.log.Warn().Err(err).Str("video_id", videoID).Msg("job finished with error")
	}
}
