package console

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dkozyrev/veloview/internal/console/models"
	"github.com/dkozyrev/veloview/internal/session"
)

// registerSessionRoutes registers the stream session endpoints. Start and
// reload block until the readiness wait resolves, so their responses carry
// the terminal outcome; timed_out and cancelled are outcomes, not HTTP
// errors.
func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Summary:     "Get Session",
		Description: "Current readiness controller state and playback position",
		Tags:        []string{"session"},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/session/start",
		Summary:     "Start Stream",
		Description: "Start the backend pipeline for a source URL and wait until the stream is playable",
		Tags:        []string{"session"},
		Errors:      []int{400},
	}, func(ctx context.Context, input *models.StartRequest) (*models.OutcomeResponse, error) {
		outcome, err := s.controller.Start(ctx, input.Body.InputURL)
		if errors.Is(err, session.ErrEmptyInput) {
			return nil, huma.Error400BadRequest("input_url must not be empty")
		}
		if err != nil {
			s.logger.Warn("start resolved with error", "error", err)
		}
		return &models.OutcomeResponse{Body: models.OutcomeData{
			Outcome: string(outcome),
			Session: s.sessionData(),
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-session",
		Method:      http.MethodPost,
		Path:        "/api/session/stop",
		Summary:     "Stop Stream",
		Description: "Tear down the pipeline and player, returning to idle",
		Tags:        []string{"session"},
	}, func(ctx context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if err := s.controller.Stop(ctx); err != nil {
			s.logger.Warn("stop reported error", "error", err)
		}
		return &models.SessionResponse{Body: s.sessionData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reload-session",
		Method:      http.MethodPost,
		Path:        "/api/session/reload",
		Summary:     "Reload Stream",
		Description: "Reattach playback to the currently active pipeline",
		Tags:        []string{"session"},
	}, func(ctx context.Context, _ *struct{}) (*models.OutcomeResponse, error) {
		outcome, err := s.controller.Reload(ctx)
		if err != nil {
			s.logger.Warn("reload resolved with error", "error", err)
		}
		return &models.OutcomeResponse{Body: models.OutcomeData{
			Outcome: string(outcome),
			Session: s.sessionData(),
		}}, nil
	})

}

func (s *Server) sessionData() models.SessionData {
	snap := s.controller.Snapshot()
	data := models.SessionData{
		State:          string(snap.State),
		Detail:         snap.Detail,
		HLSURL:         snap.HLSURL,
		SegmentsFound:  snap.SegmentsFound,
		SegmentsNeed:   snap.SegmentsNeed,
		Engine:         snap.Engine,
		OverlayVisible: s.renderer.Visible(),
	}
	if pb := s.controller.Playback(); pb != nil {
		data.Position = pb.Position()
	}
	return data
}
