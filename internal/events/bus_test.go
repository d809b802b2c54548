package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	got := make(chan StateChangedEvent, 1)

	unsub := bus.Subscribe(func(e StateChangedEvent) {
		got <- e
	})
	defer unsub()

	bus.Publish(StateChangedEvent{State: "waiting", Detail: "1/2 segments"})

	select {
	case e := <-got:
		if e.State != "waiting" {
			t.Errorf("State = %q, want waiting", e.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscriberTypeIsolation(t *testing.T) {
	bus := New()
	progress := make(chan ReadinessProgressEvent, 2)
	state := make(chan StateChangedEvent, 2)

	defer bus.Subscribe(func(e ReadinessProgressEvent) { progress <- e })()
	defer bus.Subscribe(func(e StateChangedEvent) { state <- e })()

	bus.Publish(ReadinessProgressEvent{SegmentsFound: 1, SegmentsNeed: 2})

	select {
	case e := <-progress:
		if e.SegmentsFound != 1 || e.SegmentsNeed != 2 {
			t.Errorf("unexpected progress event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress event")
	}

	select {
	case e := <-state:
		t.Errorf("state subscriber received unrelated event %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	got := make(chan ROIChangedEvent, 1)

	unsub := bus.Subscribe(func(e ROIChangedEvent) { got <- e })
	unsub()

	bus.Publish(ROIChangedEvent{Points: 3, Valid: true})

	select {
	case e := <-got:
		t.Errorf("received event after unsubscribe: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[TimelineLoadedEvent](bus, ch)
	defer unsub()

	bus.Publish(TimelineLoadedEvent{Frames: 12, MaxCount: 4})

	select {
	case received := <-ch:
		e, ok := received.(TimelineLoadedEvent)
		if !ok {
			t.Fatalf("expected TimelineLoadedEvent, got %T", received)
		}
		if e.Frames != 12 || e.MaxCount != 4 {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel delivery")
	}
}

func TestSubscribeToChannelNonBlocking(t *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer, nobody reading.

	unsub := SubscribeToChannel[ROIChangedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(ROIChangedEvent{Points: 3, Valid: true})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full channel")
	}
}

func TestUnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(int) {})
	unsub()
}
