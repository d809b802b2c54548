package console

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dkozyrev/veloview/internal/console/models"
	"github.com/dkozyrev/veloview/internal/geom"
)

// registerROIRoutes registers the polygon editor endpoints. Pointer events
// arrive in display coordinates and are forwarded to the editor verbatim.
func (s *Server) registerROIRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-roi",
		Method:      http.MethodGet,
		Path:        "/api/roi",
		Summary:     "Get ROI",
		Description: "Current polygon, edit state and the normalized export when valid",
		Tags:        []string{"roi"},
	}, func(_ context.Context, _ *struct{}) (*models.ROIResponse, error) {
		return &models.ROIResponse{Body: s.roiData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "roi-pointer",
		Method:      http.MethodPost,
		Path:        "/api/roi/pointer",
		Summary:     "ROI Pointer Event",
		Description: "Feed a pointer down/move/up event to the polygon editor",
		Tags:        []string{"roi"},
		Errors:      []int{422},
	}, func(_ context.Context, input *models.PointerEventRequest) (*models.ROIResponse, error) {
		p := geom.Point{X: input.Body.X, Y: input.Body.Y}
		switch input.Body.Kind {
		case "down":
			s.editor.PointerDown(p)
		case "move":
			s.editor.PointerMove(p)
		case "up":
			s.editor.PointerUp()
		}
		return &models.ROIResponse{Body: s.roiData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-roi-mode",
		Method:      http.MethodPost,
		Path:        "/api/roi/mode",
		Summary:     "Set ROI Mode",
		Description: "Enter or leave edit mode; leaving keeps the points",
		Tags:        []string{"roi"},
	}, func(_ context.Context, input *models.ROIModeRequest) (*models.ROIResponse, error) {
		s.editor.SetEditMode(input.Body.Edit)
		return &models.ROIResponse{Body: s.roiData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-roi-enabled",
		Method:      http.MethodPost,
		Path:        "/api/roi/enabled",
		Summary:     "Set ROI Enabled",
		Description: "Toggle whether the polygon is attached to counting submissions",
		Tags:        []string{"roi"},
	}, func(_ context.Context, input *models.ROIEnabledRequest) (*models.ROIResponse, error) {
		s.editor.SetEnabled(input.Body.Enabled)
		return &models.ROIResponse{Body: s.roiData()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-roi",
		Method:      http.MethodDelete,
		Path:        "/api/roi",
		Summary:     "Clear ROI",
		Description: "Discard all polygon points, in any mode",
		Tags:        []string{"roi"},
	}, func(_ context.Context, _ *struct{}) (*models.ROIResponse, error) {
		s.editor.Clear()
		return &models.ROIResponse{Body: s.roiData()}, nil
	})
}

func (s *Server) roiData() models.ROIData {
	points := s.editor.Points()
	data := models.ROIData{
		Points:   make([]models.ROIPoint, len(points)),
		EditMode: s.editor.EditMode(),
		Enabled:  s.editor.Enabled(),
	}
	for i, p := range points {
		data.Points[i] = models.ROIPoint{X: p.X, Y: p.Y}
	}
	if norm, ok := s.editor.Export(); ok {
		data.Normalized = norm
	}
	return data
}
