package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ── Anomaly accumulation ──────────────────────────────────────────────────────

type AnomalyKind string

const (
	AnomalyBadRow        AnomalyKind = "bad_row"
	AnomalyUnknownCode   AnomalyKind = "unknown_code"
	AnomalyZeroDriver    AnomalyKind = "zero_driver_total"
	AnomalyMissingDriver AnomalyKind = "missing_driver_data"
)

// Anomaly is one non-fatal data problem observed during a run. Anomalies
// never abort a computation; they accumulate on the run report so the
// operator can trace every input amount into an allocated, unallocated, or
// anomaly bucket.
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	Stage   string      `json:"stage"`
	Code    string      `json:"code,omitempty"`
	Unit    string      `json:"unit,omitempty"`
	Message string      `json:"message"`
}

// RunReport collects the anomalies of one pipeline run under a unique run ID.
type RunReport struct {
	RunID     string    `json:"run_id"`
	Period    string    `json:"period"`
	Anomalies []Anomaly `json:"anomalies"`
}

// NewRunReport starts an empty report for the given target period.
func NewRunReport(period string) *RunReport {
	return &RunReport{RunID: uuid.NewString(), Period: period}
}

func (r *RunReport) Add(a Anomaly) {
	r.Anomalies = append(r.Anomalies, a)
}

func (r *RunReport) Addf(kind AnomalyKind, stage, code, unit, format string, args ...any) {
	r.Add(Anomaly{Kind: kind, Stage: stage, Code: code, Unit: unit, Message: fmt.Sprintf(format, args...)})
}

// Count returns the number of accumulated anomalies.
func (r *RunReport) Count() int { return len(r.Anomalies) }

// ── Structural errors ─────────────────────────────────────────────────────────

// StageError reports the structural absence of a required input table. It is
// fatal for the affected stage only; unrelated stages keep running.
type StageError struct {
	Stage string
	Table string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: required table %s is absent", e.Stage, e.Table)
}

// MissingTable builds the typed failure for an absent table.
func MissingTable(stage, table string) error {
	return &StageError{Stage: stage, Table: table}
}
