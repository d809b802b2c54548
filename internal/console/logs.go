package console

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dkozyrev/veloview/internal/console/models"
	"github.com/dkozyrev/veloview/internal/logging"
)

// registerLogRoutes registers the log tail endpoint backed by the in-memory
// log history ring.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Get Logs",
		Description: "Tail of retained log entries, oldest first",
		Tags:        []string{"logs"},
	}, func(_ context.Context, input *struct {
		Limit int `query:"limit" default:"100" minimum:"0" maximum:"1000" doc:"Maximum entries to return; 0 returns everything retained"`
	}) (*models.LogsResponse, error) {
		var entries []logging.Entry
		if history := logging.GetHistory(); history != nil {
			entries = history.Tail(input.Limit)
		}
		return &models.LogsResponse{
			Body: models.LogsData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}
