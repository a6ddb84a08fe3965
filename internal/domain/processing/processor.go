package processing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/metrics"
)

// Stage is one fixed step of the post-upload sequence.
type Stage struct {
	Progress int
	Message  string
}

// Stages is the fixed ordered pipeline walked for every accepted upload.
var Stages = []Stage{
	{Progress: 20, Message: "Validating format..."},
	{Progress: 50, Message: "Analyzing content..."},
	{Progress: 80, Message: "Checking sensitivity..."},
	{Progress: 100, Message: "Optimization complete."},
}

// Event is a single progress notification pushed to realtime subscribers.
type Event struct {
	VideoID     string                  `json:"videoId"`
	Status      video.ProcessingStatus  `json:"status"`
	Progress    int                     `json:"progress"`
	Message     string                  `json:"message,omitempty"`
	Sensitivity video.SensitivityStatus `json:"sensitivity,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// Publisher delivers events to subscribers of the given video.
type Publisher interface {
	Publish(videoID string, event Event)
}

// Repository is the persistence surface the pipeline drives.
type Repository interface {
	GetByID(ctx context.Context, id string) (*video.Video, error)
	UpdateProgress(ctx context.Context, id string, status video.ProcessingStatus, progress int) error
	Finish(ctx context.Context, id string, sensitivity video.SensitivityStatus) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Classifier decides the sensitivity outcome once all stages complete. The
// default draw is a stand-in for a real moderation step; the interface is
// the contract, not the coin flip.
type Classifier interface {
	Classify(ctx context.Context, videoID string) (video.SensitivityStatus, error)
}

// RandomClassifier flags a fixed fraction of videos.
type RandomClassifier struct {
	mu       sync.Mutex
	flagRate float64
	rng      *rand.Rand
}

func NewRandomClassifier(flagRate float64, seed int64) *RandomClassifier {
	return &RandomClassifier{
		flagRate: flagRate,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (c *RandomClassifier) Classify(_ context.Context, _ string) (video.SensitivityStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rng.Float64() < c.flagRate {
		return video.SensitivityFlagged, nil
	}
	return video.SensitivitySafe, nil
}

// Processor walks one video through the staged pipeline, persisting every
// transition and publishing progress events keyed by video id.
type Processor struct {
	repo       Repository
	publisher  Publisher
	classifier Classifier
	stageDelay time.Duration
	log        zerolog.Logger
}

func NewProcessor(repo Repository, publisher Publisher, classifier Classifier, stageDelay time.Duration, log zerolog.Logger) *Processor {
	return &Processor{
		repo:       repo,
		publisher:  publisher,
		classifier: classifier,
		stageDelay: stageDelay,
		log:        log.With().Str("component", "processor").Logger(),
	}
}

// Process runs the pipeline for a single video. Any persistence failure
// transitions the record to failed with the reason recorded; the failure is
// also published so operators and clients see it.
func (p *Processor) Process(ctx context.Context, videoID string) error {
	start := time.Now()

	if _, err := p.repo.GetByID(ctx, videoID); err != nil {
		return fmt.Errorf("load video %s: %w", videoID, err)
	}

	if err := p.repo.UpdateProgress(ctx, videoID, video.ProcessingInProgress, 0); err != nil {
		return p.fail(ctx, videoID, start, fmt.Errorf("enter processing: %w", err))
	}
	p.publisher.Publish(videoID, Event{
		VideoID:  videoID,
		Status:   video.ProcessingInProgress,
		Progress: 0,
	})

	for _, stage := range Stages {
		if err := p.pause(ctx); err != nil {
			return p.fail(ctx, videoID, start, err)
		}
		if err := p.repo.UpdateProgress(ctx, videoID, video.ProcessingInProgress, stage.Progress); err != nil {
			return p.fail(ctx, videoID, start, fmt.Errorf("persist progress %d: %w", stage.Progress, err))
		}
		p.publisher.Publish(videoID, Event{
			VideoID:  videoID,
			Status:   video.ProcessingInProgress,
			Progress: stage.Progress,
			Message:  stage.Message,
		})
	}

	sensitivity, err := p.classifier.Classify(ctx, videoID)
	if err != nil {
		return p.fail(ctx, videoID, start, fmt.Errorf("classify: %w", err))
	}
	if err := p.repo.Finish(ctx, videoID, sensitivity); err != nil {
		return p.fail(ctx, videoID, start, fmt.Errorf("finalize: %w", err))
	}

	p.publisher.Publish(videoID, Event{
		VideoID:     videoID,
		Status:      video.ProcessingCompleted,
		Progress:    100,
		Sensitivity: sensitivity,
	})

	metrics.RecordProcessing("completed", time.Since(start).Seconds())
	p.log.Info().
		Str("video_id", videoID).
		Str("sensitivity", string(sensitivity)).
		Msg("processing complete")
	return nil
}

// Fail records a terminal failure outside a pipeline run, for example when a
// job could not be scheduled at all.
func (p *Processor) Fail(ctx context.Context, videoID, reason string) {
	_ = p.fail(ctx, videoID, time.Now(), errors.New(reason))
}

// pause is the cooperative delay between stages.
func (p *Processor) pause(ctx context.Context) error {
	if p.stageDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.stageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Processor) fail(ctx context.Context, videoID string, start time.Time, cause error) error {
	p.log.Error().Err(cause).Str("video_id", videoID).Msg("processing failed")

	// MarkFailed uses a fresh context so a cancelled pipeline can still
	// record its terminal state.
	if err := p.repo.MarkFailed(context.WithoutCancel(ctx), videoID, cause.Error()); err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).Msg("persist failed state")
	}
	p.publisher.Publish(videoID, Event{
		VideoID: videoID,
		Status:  video.ProcessingFailed,
		Error:   cause.Error(),
	})
	metrics.RecordProcessing("failed", time.Since(start).Seconds())
	return cause
}
