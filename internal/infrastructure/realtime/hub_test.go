package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/processing"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/realtime"
)

type wireFrame struct {
	Event string           `json:"event"`
	Data  processing.Event `json:"data"`
}

func receive(t *testing.T, sub *realtime.Subscriber) wireFrame {
	t.Helper()
	select {
	case raw, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		var frame wireFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	return wireFrame{}
}

func expectNothing(t *testing.T, sub *realtime.Subscriber) {
	t.Helper()
	select {
	case raw, ok := <-sub.Messages():
		if ok {
			t.Fatalf("unexpected frame: %s", raw)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoutesByVideoID(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	defer hub.Close()

	subA := hub.Subscribe("vid_a")
	subB := hub.Subscribe("vid_b")

	hub.Publish("vid_a", processing.Event{
		VideoID:  "vid_a",
		Status:   video.ProcessingInProgress,
		Progress: 20,
		Message:  "Validating format...",
	})

	frame := receive(t, subA)
	if frame.Event != "videoProgress" {
		t.Errorf("event = %q, want videoProgress", frame.Event)
	}
	if frame.Data.VideoID != "vid_a" || frame.Data.Progress != 20 {
		t.Errorf("data = %+v", frame.Data)
	}

	expectNothing(t, subB)
}

func TestHub_FirehoseSeesEverything(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	defer hub.Close()

	firehose := hub.Subscribe("")

	hub.Publish("vid_a", processing.Event{VideoID: "vid_a", Status: video.ProcessingInProgress, Progress: 50})
	hub.Publish("vid_b", processing.Event{VideoID: "vid_b", Status: video.ProcessingCompleted, Progress: 100})

	first := receive(t, firehose)
	second := receive(t, firehose)
	seen := map[string]bool{first.Data.VideoID: true, second.Data.VideoID: true}
	if !seen["vid_a"] || !seen["vid_b"] {
		t.Errorf("firehose saw %v, want both videos", seen)
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	defer hub.Close()

	sub := hub.Subscribe("vid_a")
	hub.Unsubscribe(sub)

	select {
	case _, ok := <-sub.Messages():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish("vid_a", processing.Event{VideoID: "vid_a"})
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	defer hub.Close()

	sub := hub.Subscribe("vid_a")
	done := make(chan struct{})
	go func() {
		// Overflow the buffer without draining; Publish must never block.
		for i := 0; i < 100; i++ {
			hub.Publish("vid_a", processing.Event{VideoID: "vid_a", Progress: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	hub.Unsubscribe(sub)
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	sub := hub.Subscribe("vid_a")

	hub.Close()
	hub.Close()

	if _, ok := <-sub.Messages(); ok {
		t.Fatal("expected closed channel after hub close")
	}
	// Subscribing after close yields an already-closed channel.
	late := hub.Subscribe("vid_b")
	if _, ok := <-late.Messages(); ok {
		t.Fatal("expected closed channel for late subscriber")
	}
}
