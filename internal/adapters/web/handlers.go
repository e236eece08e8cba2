// Package web exposes the controlling pipeline as a JSON API. Callers post
// the full input snapshot with each request; the service itself holds no
// state between runs, so results are archived to Postgres when a run archive
// is configured.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cdg-engine/internal/app"
	"cdg-engine/internal/core"
	"cdg-engine/internal/db"
)

// Snapshot payloads carry whole ledgers, so the body cap is generous.
const maxSnapshotBody = 16 << 20 // 16 MB

// Handler holds the pipeline service, the optional run archive, and the chi router.
type Handler struct {
	svc     app.PipelineService
	archive *db.RunArchive
	log     *zap.Logger
	router  chi.Router
}

// NewHandler creates and wires the chi router with all routes. The archive
// may be nil; run persistence and the /api/runs endpoints are then disabled.
func NewHandler(svc app.PipelineService, archive *db.RunArchive, allowedOrigins string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{svc: svc, archive: archive, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(maxSnapshotBody))
		r.Post("/api/periods/compute", h.compute)
		r.Post("/api/cashflow", h.cashflow)
		r.Post("/api/scenarios", h.scenarios)
		r.Post("/api/kpi", h.kpis)
		r.Post("/api/whatif", h.whatif)
		r.Post("/api/validate", h.validate)
	})

	r.Get("/api/kpi/trend", h.kpiTrend)
	r.Get("/api/runs", h.listRuns)
	r.Get("/api/runs/{id}", h.getRun)

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Archive bool   `json:"archive"`
	}
	writeJSON(w, response{Status: "ok", Archive: h.archive != nil})
}

// ── Pipeline endpoints ────────────────────────────────────────────────────────

type periodRequest struct {
	Period   string              `json:"period"`
	Snapshot *core.InputSnapshot `json:"snapshot"`
}

func (req *periodRequest) parse(w http.ResponseWriter, r *http.Request) (core.Period, bool) {
	if req.Snapshot == nil {
		writeError(w, r, "snapshot is required", "BAD_REQUEST", http.StatusBadRequest)
		return core.Period{}, false
	}
	p, err := core.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, r, err.Error(), "BAD_PERIOD", http.StatusBadRequest)
		return core.Period{}, false
	}
	return p, true
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := req.parse(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ComputePeriod(r.Context(), req.Snapshot, period)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	h.archiveRun(r, db.RunKindPeriod, res.Report, res)
	writeJSON(w, res)
}

type cashflowRequest struct {
	Snapshot    *core.InputSnapshot `json:"snapshot"`
	Start       string              `json:"start,omitempty"`       // YYYY-MM-DD
	Granularity string              `json:"granularity,omitempty"` // weekly or monthly
	Periods     int                 `json:"periods,omitempty"`
}

func (req *cashflowRequest) parse(w http.ResponseWriter, r *http.Request) (app.CashFlowRequest, bool) {
	if req.Snapshot == nil {
		writeError(w, r, "snapshot is required", "BAD_REQUEST", http.StatusBadRequest)
		return app.CashFlowRequest{}, false
	}
	out := app.CashFlowRequest{
		Granularity: core.Granularity(req.Granularity),
		Periods:     req.Periods,
	}
	if req.Start != "" {
		start, err := time.Parse("2006-01-02", req.Start)
		if err != nil {
			writeError(w, r, "start must be YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
			return app.CashFlowRequest{}, false
		}
		out.Start = start
	}
	return out, true
}

func (h *Handler) cashflow(w http.ResponseWriter, r *http.Request) {
	var req cashflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfReq, ok := req.parse(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ProjectCashFlow(r.Context(), req.Snapshot, cfReq)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	h.archiveRun(r, db.RunKindCashFlow, res.Report, res)
	writeJSON(w, res)
}

func (h *Handler) scenarios(w http.ResponseWriter, r *http.Request) {
	var req cashflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfReq, ok := req.parse(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RunScenarios(r.Context(), req.Snapshot, cfReq)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	h.archiveRun(r, db.RunKindScenarios, res.Report, res)
	writeJSON(w, res)
}

func (h *Handler) kpis(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := req.parse(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ComputeKPIs(r.Context(), req.Snapshot, period)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	h.archiveRun(r, db.RunKindKPI, res.Report, res)
	writeJSON(w, res)
}

type whatifRequest struct {
	Period   string              `json:"period"`
	Snapshot *core.InputSnapshot `json:"snapshot"`
	Change   core.WhatIfChange   `json:"change"`
}

func (h *Handler) whatif(w http.ResponseWriter, r *http.Request) {
	var req whatifRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pr := periodRequest{Period: req.Period, Snapshot: req.Snapshot}
	period, ok := pr.parse(w, r)
	if !ok {
		return
	}
	if req.Change.ItemCode == "" {
		writeError(w, r, "change.item_code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	res, err := h.svc.SimulateAllocation(r.Context(), req.Snapshot, period, req.Change)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	period, ok := req.parse(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ValidateSnapshot(r.Context(), req.Snapshot, period)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ── Run archive endpoints ─────────────────────────────────────────────────────

// kpiTrend builds a KPI series from archived KPI runs: for each requested
// period the most recent archived run supplies the values. Periods with no
// archived run come back as gap points.
func (h *Handler) kpiTrend(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, r, "run archive not configured", "NO_ARCHIVE", http.StatusServiceUnavailable)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, "code is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	periods := strings.Split(r.URL.Query().Get("periods"), ",")
	valid := periods[:0]
	for _, p := range periods {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := core.ParsePeriod(p); err != nil {
			writeError(w, r, err.Error(), "BAD_PERIOD", http.StatusBadRequest)
			return
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		writeError(w, r, "periods is required (comma-separated MM/YYYY)", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	history := map[string][]core.KPI{}
	for _, p := range valid {
		runs, err := h.archive.ListRuns(r.Context(), p, db.RunKindKPI, 1)
		if err != nil {
			writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}
		if len(runs) == 0 {
			continue
		}
		run, err := h.archive.Run(r.Context(), runs[0].RunID)
		if err != nil {
			writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}
		var kpis app.KPIResult
		if err := json.Unmarshal(run.Payload, &kpis); err != nil {
			h.log.Warn("archived kpi payload unreadable",
				zap.String("run_id", run.RunID),
				zap.Error(err))
			continue
		}
		history[p] = kpis.All()
	}

	type response struct {
		Code     string            `json:"code"`
		UnitCode string            `json:"unit_code,omitempty"`
		Points   []core.TrendPoint `json:"points"`
	}
	unit := r.URL.Query().Get("unit")
	writeJSON(w, response{
		Code:     code,
		UnitCode: unit,
		Points:   core.TrendKPI(code, unit, valid, history),
	})
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, r, "run archive not configured", "NO_ARCHIVE", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.archive.ListRuns(r.Context(), r.URL.Query().Get("period"), r.URL.Query().Get("kind"), limit)
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []db.ArchivedRun{}
	}
	writeJSON(w, runs)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, r, "run archive not configured", "NO_ARCHIVE", http.StatusServiceUnavailable)
		return
	}
	run, err := h.archive.Run(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrRunNotFound) {
		writeError(w, r, "run not found", "NOT_FOUND", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

// archiveRun persists a finished run. Archiving is best effort: a storage
// failure is logged and never fails the request that produced the result.
func (h *Handler) archiveRun(r *http.Request, kind string, report *core.RunReport, payload any) {
	if h.archive == nil {
		return
	}
	if err := h.archive.SaveRun(r.Context(), kind, report, payload); err != nil {
		h.log.Warn("archive run failed",
			zap.String("kind", kind),
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
