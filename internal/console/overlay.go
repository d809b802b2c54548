package console

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dkozyrev/veloview/internal/console/models"
	"github.com/dkozyrev/veloview/internal/events"
	"github.com/dkozyrev/veloview/internal/geom"
)

// registerOverlayRoutes registers overlay visibility and timeline loading.
// Timelines come from video counting submissions; loading one lets the
// renderer replay its detections against live playback position.
func (s *Server) registerOverlayRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "set-overlay-visible",
		Method:      http.MethodPost,
		Path:        "/api/overlay/visible",
		Summary:     "Toggle Overlay",
		Description: "Show or hide detection overlays without discarding the loaded timeline",
		Tags:        []string{"overlay"},
	}, func(_ context.Context, input *models.OverlayVisibleRequest) (*models.SessionResponse, error) {
		s.renderer.SetVisible(input.Body.Visible)
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "load-timeline",
		Method:      http.MethodPost,
		Path:        "/api/timeline",
		Summary:     "Load Timeline",
		Description: "Replace the detection timeline drawn by the overlay renderer",
		Tags:        []string{"overlay"},
	}, func(_ context.Context, input *models.TimelineLoadRequest) (*models.TimelineResponse, error) {
		if input.Body.NativeWidth > 0 && input.Body.NativeHeight > 0 {
			s.renderer.SetNativeSize(geom.Size{
				W: input.Body.NativeWidth,
				H: input.Body.NativeHeight,
			})
		}

		entries := input.Body.Entries
		s.renderer.Timeline().Replace(entries)

		maxCount := 0
		total := 0
		for _, e := range entries {
			total += e.Count
			if e.Count > maxCount {
				maxCount = e.Count
			}
		}
		avg := 0.0
		if len(entries) > 0 {
			avg = float64(total) / float64(len(entries))
		}

		if s.bus != nil {
			s.bus.Publish(events.TimelineLoadedEvent{
				Frames:   len(entries),
				AvgCount: avg,
				MaxCount: maxCount,
			})
		}
		s.logger.Info("timeline loaded", "frames", len(entries), "max_count", maxCount)

		return &models.TimelineResponse{Body: models.TimelineData{
			Frames:   len(entries),
			AvgCount: avg,
			MaxCount: maxCount,
		}}, nil
	})
}
