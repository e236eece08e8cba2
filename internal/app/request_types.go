package app

import (
	"time"

	"cdg-engine/internal/core"
)

// CashFlowRequest selects the horizon of a treasury projection. Start
// defaults to today; Periods defaults to the full horizon of the requested
// granularity (12 weeks or 60 months).
type CashFlowRequest struct {
	Start       time.Time        `json:"start"`
	Granularity core.Granularity `json:"granularity"`
	Periods     int              `json:"periods"`
}

// withDefaults fills the zero fields.
func (r CashFlowRequest) withDefaults(now time.Time) CashFlowRequest {
	if r.Start.IsZero() {
		r.Start = now
	}
	if r.Granularity == "" {
		r.Granularity = core.Weekly
	}
	if r.Periods <= 0 {
		if r.Granularity == core.Weekly {
			r.Periods = 12
		} else {
			r.Periods = 60
		}
	}
	return r
}
