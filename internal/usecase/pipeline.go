package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/platform/id"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SequenceSyncAll expands to every registered job in dependency order.
const SequenceSyncAll = "sync-all"

// Job is one ingestion pass the pipeline can run.
type Job interface {
	Name() string
	SuccessMessage() string
	Run(ctx context.Context) (any, error)
}

type dependentJob interface {
	DependsOn() []string
}

type JobOutcome struct {
	Job      string        `json:"job"`
	RunID    string        `json:"runId,omitempty"`
	Status   jobrun.Status `json:"status"`
	Message  string        `json:"message,omitempty"`
	Summary  any           `json:"summary,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

type PipelineResult struct {
	Outcomes []JobOutcome `json:"outcomes"`
}

// Message joins the success messages of the completed jobs.
func (r PipelineResult) Message() string {
	parts := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == jobrun.StatusCompleted && o.Message != "" {
			parts = append(parts, o.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// Pipeline runs registered jobs sequentially in the order they were
// registered, skipping a job when a job it depends on failed in the same run.
type Pipeline struct {
	jobs    map[string]Job
	order   []string
	runs    jobrun.Repository
	ids     id.Generator
	logger  *logging.Logger
	metrics JobMetrics
	now     func() time.Time
}

func NewPipeline(runs jobrun.Repository, ids id.Generator, logger *logging.Logger, metrics JobMetrics, jobs ...Job) *Pipeline {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}

	p := &Pipeline{
		jobs:    make(map[string]Job, len(jobs)),
		runs:    runs,
		ids:     ids,
		logger:  logger,
		metrics: metricsOrNoop(metrics),
		now:     time.Now,
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if _, exists := p.jobs[job.Name()]; exists {
			continue
		}
		p.jobs[job.Name()] = job
		p.order = append(p.order, job.Name())
	}
	return p
}

// Jobs lists registered job names in run order.
func (p *Pipeline) Jobs() []string {
	return append([]string(nil), p.order...)
}

// Resolve expands sequence names and orders the result by registration order.
func (p *Pipeline) Resolve(names ...string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one job name is required", ErrInvalidInput)
	}

	wanted := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == SequenceSyncAll {
			for _, n := range p.order {
				wanted[n] = struct{}{}
			}
			continue
		}
		if _, ok := p.jobs[name]; !ok {
			return nil, fmt.Errorf("%w: unknown job %q", ErrInvalidInput, name)
		}
		wanted[name] = struct{}{}
	}

	out := make([]string, 0, len(wanted))
	for _, n := range p.order {
		if _, ok := wanted[n]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (p *Pipeline) Run(ctx context.Context, trigger jobrun.Trigger, names ...string) (PipelineResult, error) {
	resolved, err := p.Resolve(names...)
	if err != nil {
		return PipelineResult{}, err
	}

	ctx, span := usecaseTracer.Start(ctx, "usecase.Pipeline.Run", trace.WithAttributes(
		attribute.String("job.trigger", string(trigger)),
		attribute.StringSlice("job.names", resolved),
	))
	defer span.End()

	result := PipelineResult{Outcomes: make([]JobOutcome, 0, len(resolved))}
	failed := make(map[string]bool, len(resolved))
	var errs []error

	for _, name := range resolved {
		job := p.jobs[name]

		if dep, blocked := p.blockedBy(job, failed); blocked {
			failed[name] = true
			depErr := fmt.Errorf("%w: %s skipped because %s failed", ErrDependencyUnavailable, name, dep)
			errs = append(errs, depErr)
			result.Outcomes = append(result.Outcomes, JobOutcome{
				Job:    name,
				Status: jobrun.StatusSkipped,
				Error:  depErr.Error(),
			})
			p.metrics.ObserveRun(name, string(jobrun.StatusSkipped), 0)
			p.logger.WarnContext(ctx, "job skipped", "job", name, "trigger", trigger, "dependency", dep)
			continue
		}

		outcome, runErr := p.runOne(ctx, trigger, job)
		result.Outcomes = append(result.Outcomes, outcome)
		if runErr != nil {
			failed[name] = true
			errs = append(errs, runErr)
			if ctx.Err() != nil {
				break
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}

func (p *Pipeline) blockedBy(job Job, failed map[string]bool) (string, bool) {
	dj, ok := job.(dependentJob)
	if !ok {
		return "", false
	}
	for _, dep := range dj.DependsOn() {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

func (p *Pipeline) runOne(ctx context.Context, trigger jobrun.Trigger, job Job) (JobOutcome, error) {
	name := job.Name()
	runID, err := p.ids.NewID()
	if err != nil {
		return JobOutcome{Job: name, Status: jobrun.StatusFailed, Error: err.Error()}, fmt.Errorf("generate run id: %w", err)
	}

	started := p.now()
	p.record(ctx, jobrun.Event{RunID: runID, JobName: name, Trigger: trigger, Status: jobrun.StatusStarted, OccurredAt: started})
	p.logger.InfoContext(ctx, "job started", "job", name, "run_id", runID, "trigger", trigger)

	summary, runErr := job.Run(ctx)
	elapsed := p.now().Sub(started)

	outcome := JobOutcome{Job: name, RunID: runID, Summary: summary, Duration: elapsed}
	event := jobrun.Event{RunID: runID, JobName: name, Trigger: trigger, Summary: summary, OccurredAt: p.now()}
	if runErr != nil {
		runErr = fmt.Errorf("%s: %w", name, runErr)
		outcome.Status = jobrun.StatusFailed
		outcome.Error = runErr.Error()
		event.Status = jobrun.StatusFailed
		event.ErrorMessage = runErr.Error()
		p.logger.ErrorContext(ctx, "job failed", "job", name, "run_id", runID, "elapsed", elapsed, "error", runErr)
	} else {
		outcome.Status = jobrun.StatusCompleted
		outcome.Message = job.SuccessMessage()
		event.Status = jobrun.StatusCompleted
		p.logger.InfoContext(ctx, "job completed", "job", name, "run_id", runID, "elapsed", elapsed)
	}

	p.metrics.ObserveRun(name, string(outcome.Status), elapsed)
	p.record(ctx, event)
	return outcome, runErr
}

func (p *Pipeline) record(ctx context.Context, event jobrun.Event) {
	if p.runs == nil {
		return
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		event.TraceID = spanCtx.TraceID().String()
		event.SpanID = spanCtx.SpanID().String()
	}
	// A cancelled run still gets its final state written.
	if err := p.runs.Record(context.WithoutCancel(ctx), event); err != nil {
		p.logger.WarnContext(ctx, "record job run failed",
			"run_id", event.RunID,
			"job", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}
