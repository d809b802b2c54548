package console

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/dkozyrev/veloview/internal/events"
)

// registerEventRoutes registers the native Huma SSE endpoint.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of session state, readiness progress, playback errors and editor changes",
		Tags:        []string{"events"},
	}, map[string]any{
		"state-changed":      events.StateChangedEvent{},
		"readiness-progress": events.ReadinessProgressEvent{},
		"status-polled":      events.StatusPolledEvent{},
		"playback-error":     events.PlaybackErrorEvent{},
		"timeline-loaded":    events.TimelineLoadedEvent{},
		"roi-changed":        events.ROIChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		var unsubscribers []func()
		if s.bus != nil {
			unsubscribers = []func(){
				events.SubscribeToChannel[events.StateChangedEvent](s.bus, eventCh),
				events.SubscribeToChannel[events.ReadinessProgressEvent](s.bus, eventCh),
				events.SubscribeToChannel[events.StatusPolledEvent](s.bus, eventCh),
				events.SubscribeToChannel[events.PlaybackErrorEvent](s.bus, eventCh),
				events.SubscribeToChannel[events.TimelineLoadedEvent](s.bus, eventCh),
				events.SubscribeToChannel[events.ROIChangedEvent](s.bus, eventCh),
			}
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// The first frame carries the current session state, so a client
		// that reconnects mid-session does not need a separate GET.
		snap := s.controller.Snapshot()
		if err := send.Data(events.StateChangedEvent{
			State:     string(snap.State),
			Detail:    snap.Detail,
			HLSURL:    snap.HLSURL,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
