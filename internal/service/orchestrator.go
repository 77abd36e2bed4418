package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"okrdrift/internal/config"
	"okrdrift/internal/model"
	"okrdrift/internal/normalize"
	"okrdrift/internal/platform/logger"
)

// SubmitRequest is one analysis submission
type SubmitRequest struct {
	Token         uint64
	StudentID     string
	QuarterlyGoal string
	CurrentLevel  model.Level
}

// Orchestrator sequences calls to the analysis service and turns their results into outcomes.
// Submission failures degrade to a synthetic report; history and health failures are surfaced.
type Orchestrator struct {
	api        AnalysisAPI
	cfg        config.AnalysisConfig
	narrator   *Narrator
	normalizer *normalize.Normalizer
	now        func() time.Time
	log        *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(api AnalysisAPI, cfg config.AnalysisConfig, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	o := &Orchestrator{
		api:      api,
		cfg:      cfg,
		narrator: NewNarrator(cfg.ProgressCadence),
		log:      log.Component("orchestrator"),
	}
	o.SetClock(time.Now)
	return o
}

// SetClock replaces the clock used for fallback timestamps
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
	o.normalizer = normalize.NewWithClock(now)
}

// CheckHealth makes one GET /health. It never retries.
func (o *Orchestrator) CheckHealth(ctx context.Context) model.HealthStatus {
	ctx, cancel := withTimeout(ctx, o.cfg.HealthTimeout)
	defer cancel()

	resp, err := o.api.Health(ctx)
	if err != nil {
		o.log.Info("health check failed", "error", err)
		return model.HealthUnreachable
	}
	if !resp.OK() {
		o.log.Info("health check returned non-2xx", "status", resp.StatusCode)
		return model.HealthUnhealthy
	}
	return model.HealthHealthy
}

// SubmitAnalysis posts one analysis request bounded by the submit timeout. A recognizable
// response is returned as Live. Any other result is absorbed into a Fallback outcome built from
// the synthetic template, narrated through progress while it is prepared.
func (o *Orchestrator) SubmitAnalysis(ctx context.Context, req SubmitRequest, progress ProgressFunc) model.RequestOutcome {
	studentID, err := strconv.ParseInt(strings.TrimSpace(req.StudentID), 10, 64)
	if err != nil {
		o.log.Warn("student id is not an integer", "student_id", req.StudentID)
		return model.Failed(model.ErrorMalformed)
	}

	callCtx, cancel := withTimeout(ctx, o.cfg.SubmitTimeout)
	resp, err := o.api.Analyze(callCtx, AnalyzeRequest{
		StudentID:     studentID,
		QuarterlyGoal: req.QuarterlyGoal,
		CurrentLevel:  string(req.CurrentLevel),
	})
	cancel()

	var kind model.ErrorKind
	switch {
	case err != nil:
		kind = KindOf(err)
	case !resp.OK():
		kind = model.ErrorUnreachable
		err = fmt.Errorf("status %d", resp.StatusCode)
	case !normalize.Recognizable(resp.Body):
		kind = model.ErrorMalformed
		err = fmt.Errorf("response has no student identifier")
	default:
		return model.Live(o.normalizer.Normalize(resp.Body))
	}

	o.log.Warn("analysis unavailable, using synthetic report",
		"kind", kind, "error", err, "student_id", req.StudentID, "seq", req.Token)
	return o.fallback(ctx, req, progress)
}

// fallback narrates the staged progress and then builds the synthetic report, so its
// timestamp is taken when the outcome is produced
func (o *Orchestrator) fallback(ctx context.Context, req SubmitRequest, progress ProgressFunc) model.RequestOutcome {
	if !o.narrator.Run(ctx, req.Token, progress) {
		o.log.Debug("narration cancelled", "seq", req.Token)
	}
	report := o.normalizer.Normalize(syntheticPayload(req.StudentID, req.QuarterlyGoal, req.CurrentLevel))
	return model.Fallback(report)
}

// FetchReports returns the student's stored reports, most recent first. It never substitutes
// synthetic data: an empty or non-2xx history is ErrNotFound.
func (o *Orchestrator) FetchReports(ctx context.Context, studentID string) ([]model.AnalysisReport, error) {
	const op = "fetch reports"

	id := strings.TrimSpace(studentID)
	if id == "" {
		return nil, requestError(op, model.ErrorNotFound, fmt.Errorf("empty student id"))
	}

	resp, err := o.api.Reports(ctx, id)
	if err != nil {
		kind := KindOf(err)
		if kind == model.ErrorTimeout {
			kind = model.ErrorUnreachable
		}
		return nil, requestError(op, kind, err)
	}
	if !resp.OK() {
		return nil, requestError(op, model.ErrorNotFound, fmt.Errorf("status %d", resp.StatusCode))
	}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil, requestError(op, model.ErrorNotFound, fmt.Errorf("empty body"))
	}
	if !json.Valid(resp.Body) {
		return nil, requestError(op, model.ErrorMalformed, fmt.Errorf("body is not JSON"))
	}

	reports, ok := o.normalizer.NormalizeMany(resp.Body)
	if !ok {
		return nil, requestError(op, model.ErrorMalformed, fmt.Errorf("body is neither a report array nor a report object"))
	}
	if len(reports) == 0 {
		return nil, requestError(op, model.ErrorNotFound, fmt.Errorf("no reports for student %s", id))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].AnalysisTimestamp.After(reports[j].AnalysisTimestamp)
	})
	return reports, nil
}

// StudentProfile derives header information from the student's most recent report
func (o *Orchestrator) StudentProfile(ctx context.Context, studentID string) (model.StudentProfile, error) {
	reports, err := o.FetchReports(ctx, studentID)
	if err != nil {
		return model.StudentProfile{}, err
	}
	latest := reports[0]
	profile := model.StudentProfile{
		StudentID:      strings.TrimSpace(studentID),
		Name:           latest.StudentName,
		RegisterNumber: latest.RegisterNumber,
	}
	return profile, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
