// Package db holds the Postgres connection pool and the pipeline run archive.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cdg-engine/internal/core"
)

// ErrRunNotFound is returned when no archived run matches the given ID.
var ErrRunNotFound = errors.New("run not found")

// Run kinds stored in the archive.
const (
	RunKindPeriod    = "period"
	RunKindCashFlow  = "cashflow"
	RunKindScenarios = "scenarios"
	RunKindKPI       = "kpi"
)

// ArchivedRun is one stored pipeline run. Payload is the result JSON as
// produced by the app layer; listing queries leave it nil.
type ArchivedRun struct {
	RunID        string          `json:"run_id"`
	Kind         string          `json:"kind"`
	Period       string          `json:"period"`
	AnomalyCount int             `json:"anomaly_count"`
	CreatedAt    time.Time       `json:"created_at"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// RunArchive persists pipeline results keyed by run ID.
type RunArchive struct {
	pool *pgxpool.Pool
}

func NewRunArchive(pool *pgxpool.Pool) *RunArchive {
	return &RunArchive{pool: pool}
}

// SaveRun stores one result under the report's run ID. The payload is
// marshalled as-is, so retrieval returns exactly what the pipeline produced.
func (a *RunArchive) SaveRun(ctx context.Context, kind string, report *core.RunReport, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s run %s: %w", kind, report.RunID, err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (run_id, kind, period, anomaly_count, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		report.RunID, kind, report.Period, report.Count(), body)
	if err != nil {
		return fmt.Errorf("archive %s run %s: %w", kind, report.RunID, err)
	}
	return nil
}

// Run loads one archived run with its payload.
func (a *RunArchive) Run(ctx context.Context, runID string) (*ArchivedRun, error) {
	var run ArchivedRun
	err := a.pool.QueryRow(ctx,
		`SELECT run_id, kind, period, anomaly_count, created_at, payload
		 FROM pipeline_runs WHERE run_id = $1`, runID).
		Scan(&run.RunID, &run.Kind, &run.Period, &run.AnomalyCount, &run.CreatedAt, &run.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns recent runs, newest first, without payloads. Empty period
// and kind match everything; limit caps the result, defaulting to 50.
func (a *RunArchive) ListRuns(ctx context.Context, period, kind string, limit int) ([]ArchivedRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.pool.Query(ctx,
		`SELECT run_id, kind, period, anomaly_count, created_at
		 FROM pipeline_runs
		 WHERE ($1 = '' OR period = $1) AND ($2 = '' OR kind = $2)
		 ORDER BY created_at DESC LIMIT $3`,
		period, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []ArchivedRun
	for rows.Next() {
		var run ArchivedRun
		if err := rows.Scan(&run.RunID, &run.Kind, &run.Period, &run.AnomalyCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// PurgeBefore deletes archived runs older than the cutoff and reports how
// many were removed.
func (a *RunArchive) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM pipeline_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
