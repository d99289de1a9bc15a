package dto

import "github.com/noah-isme/myteacher-portal/internal/models"

// AvailabilitySummary is the tutor's weekly schedule panel.
type AvailabilitySummary struct {
	Week       []models.DaySchedule     `json:"week"`
	Blocks     []models.BlockedInterval `json:"blocks"`
	TotalHours float64                  `json:"total_hours"`
	SlotCount  int                      `json:"slot_count"`
	NextBlock  *models.BlockedInterval  `json:"next_block,omitempty"`
	Endpoints  ResolvedEndpoints        `json:"endpoints"`
}

// ResolvedEndpoints reports which backend paths serve availability data.
type ResolvedEndpoints struct {
	Availability string `json:"availability"`
	Blackout     string `json:"blackout"`
}

// CreateSlotRequest adds a weekly slot.
type CreateSlotRequest struct {
	Day   *int   `json:"dia_semana" validate:"required,min=0,max=6"`
	Start string `json:"hora_inicio" validate:"required"`
	End   string `json:"hora_fin" validate:"required"`
}

// CreateBlockRequest adds a blackout interval.
type CreateBlockRequest struct {
	Start  string `json:"inicio" validate:"required"`
	End    string `json:"fin" validate:"required"`
	Reason string `json:"motivo" validate:"max=255"`
}

// ProbeResult is one candidate endpoint's probe outcome.
type ProbeResult struct {
	Path       string `json:"path"`
	StatusCode int    `json:"status_code,omitempty"`
	Exists     bool   `json:"exists"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// EndpointReport lists probe outcomes for one resource.
type EndpointReport struct {
	Resource   string        `json:"resource"`
	Configured string        `json:"configured,omitempty"`
	Resolved   string        `json:"resolved,omitempty"`
	Candidates []ProbeResult `json:"candidates"`
}
