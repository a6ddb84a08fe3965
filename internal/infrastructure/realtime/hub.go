package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/processing"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/metrics"
)

// envelope is the wire shape pushed to websocket clients.
type envelope struct {
	Event string           `json:"event"`
	Data  processing.Event `json:"data"`
}

const progressEvent = "videoProgress"

// Subscriber receives marshalled progress frames for one video, or for all
// videos when subscribed to the firehose.
type Subscriber struct {
	ch      chan []byte
	videoID string
}

// Messages returns the subscriber's frame channel. It is closed on
// Unsubscribe or hub shutdown.
func (s *Subscriber) Messages() <-chan []byte {
	return s.ch
}

// Hub fans processing events out to websocket subscribers keyed by video id.
// An empty video id subscribes to every event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	closed bool
	log    zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscriber]struct{}),
		log:  log.With().Str("component", "realtime-hub").Logger(),
	}
}

// Subscribe registers interest in one video's events, or all events when
// videoID is empty.
func (h *Hub) Subscribe(videoID string) *Subscriber {
	sub := &Subscriber{
		ch:      make(chan []byte, 16),
		videoID: videoID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	set, ok := h.subs[videoID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[videoID] = set
	}
	set[sub] = struct{}{}
	metrics.RealtimeSubscribers.Inc()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.videoID]
	if !ok {
		return
	}
	if _, member := set[sub]; !member {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.videoID)
	}
	close(sub.ch)
	metrics.RealtimeSubscribers.Dec()
}

// Publish delivers the event to the video's subscribers and the firehose.
// Slow subscribers are skipped rather than blocking the pipeline.
func (h *Hub) Publish(videoID string, event processing.Event) {
	frame, err := json.Marshal(envelope{Event: progressEvent, Data: event})
	if err != nil {
		h.log.Error().Err(err).Str("video_id", videoID).Msg("marshal progress event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.deliver(h.subs[videoID], frame, videoID)
	if videoID != "" {
		h.deliver(h.subs[""], frame, videoID)
	}
}

func (h *Hub) deliver(set map[*Subscriber]struct{}, frame []byte, videoID string) {
	for sub := range set {
		select {
		case sub.ch <- frame:
		default:
			h.log.Warn().Str("video_id", videoID).Msg("subscriber buffer full, frame dropped")
		}
	}
}

// Close shuts the hub down and closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			close(sub.ch)
			metrics.RealtimeSubscribers.Dec()
		}
	}
	h.subs = make(map[string]map[*Subscriber]struct{})
}
