package api

import (
	"github.com/Kkro1s/HongLouMeng/internal/models"
	"github.com/Kkro1s/HongLouMeng/internal/reportservice"
)

// RunListResponse wraps paginated run listings.
type RunListResponse struct {
	Runs  []models.RunSummary `json:"runs" validate:"required"`
	Total int                 `json:"total" example:"3" validate:"required"`
}

// RefreshRequest is the optional body of POST /runs.
type RefreshRequest struct {
	Force bool `json:"force" example:"true"`
}

// RefreshResponse reports the outcome of a triggered run.
type RefreshResponse struct {
	Skipped bool               `json:"skipped"`
	Run     *models.RunSummary `json:"run,omitempty"`
}

// EdgeListResponse wraps the aggregated edges of a run.
type EdgeListResponse struct {
	RunID string                  `json:"run_id" validate:"required"`
	Edges []models.AggregatedEdge `json:"edges" validate:"required"`
}

// InteractionListResponse wraps paginated interaction events.
type InteractionListResponse struct {
	Interactions []models.InteractionEvent `json:"interactions" validate:"required"`
	Total        int                       `json:"total" example:"120" validate:"required"`
}

// CharacterListResponse wraps the alias table.
type CharacterListResponse struct {
	Characters []models.Character `json:"characters" validate:"required"`
}

// CharacterDetail is the single-character response (aliased from the domain layer).
type CharacterDetail = reportservice.CharacterDetail

// NetworkResponse is the whole-graph response (aliased from the domain layer).
type NetworkResponse = reportservice.NetworkView

// MetricsListResponse wraps every node's metrics.
type MetricsListResponse struct {
	Nodes []models.MetricsRecord `json:"nodes" validate:"required"`
}
