// Package manager runs an ordered list of guards over text under a policy
// snapshot and records every guard decision in the audit log.
package manager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/slkreddy/SafeLayer/internal/audit"
	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/policy"
	"github.com/slkreddy/SafeLayer/internal/redact"
)

const tracerName = "github.com/slkreddy/SafeLayer/internal/manager"

// Manager is safe for concurrent use. Runs share only the audit log.
type Manager struct {
	log         *audit.Log
	logger      zerolog.Logger
	tracer      trace.Tracer
	defaultMode policy.Mode
	now         func() time.Time
	newRunID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Text under inspection is never logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithTracer sets the tracer used for run and guard spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) { m.tracer = tracer }
}

// WithDefaultMode sets the fault mode for guards whose policy entry and
// policy defaults leave it unset.
func WithDefaultMode(mode policy.Mode) Option {
	return func(m *Manager) {
		if mode != "" {
			m.defaultMode = mode
		}
	}
}

// WithClock overrides the source of StartedAt and FinishedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(m *Manager) { m.newRunID = next }
}

// New returns a Manager that records into log.
func New(log *audit.Log, opts ...Option) *Manager {
	m := &Manager{
		log:         log,
		logger:      zerolog.Nop(),
		tracer:      otel.Tracer(tracerName),
		defaultMode: policy.ModeWarnContinue,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuditLog returns the log the manager records into.
func (m *Manager) AuditLog() *audit.Log {
	return m.log
}

// Run passes text through guards in order.
//
// Each enabled guard is checked; detections under the guard's threshold are
// dropped, and what remains is blocked, masked or warned about per policy.
// A block stops the run with the text as it was before the blocking guard.
// Guard faults never escape: they are recorded on the outcome and either
// stop the run (fail_fast) or are skipped over (warn_continue). Every guard
// invocation appends one audit entry, including clean ones.
//
// The returned error is non-nil only when the audit log rejected an append,
// in which case the run stops with StatusFailed. The result is never nil.
// ctx is checked before each guard; a cancelled run keeps what it produced.
func (m *Manager) Run(ctx context.Context, text string, guards []guard.Guard, pol *policy.Policy) (*RunResult, error) {
	res := &RunResult{
		RunID:      m.newRunID(),
		InputHash:  hashText(text),
		OutputText: text,
		Status:     StatusCompleted,
		StartedAt:  m.now(),
	}
	start := time.Now()

	ctx, span := m.tracer.Start(ctx, "safelayer.run", trace.WithAttributes(
		attribute.String("run.id", res.RunID),
		attribute.Int("run.guards", len(guards)),
	))
	defer span.End()

	log := m.logger.With().Str("run_id", res.RunID).Logger()
	// Entries for work already done are written even after cancellation.
	auditCtx := context.WithoutCancel(ctx)

	working := text
	var runErr error
	for _, g := range guards {
		if err := ctx.Err(); err != nil {
			res.Status = StatusCancelled
			res.Err = err
			log.Warn().Err(err).Int("outcomes", len(res.Outcomes)).Msg("run cancelled")
			break
		}

		id := g.ID()
		gp := pol.Resolve(id)
		if !gp.IsEnabled() {
			log.Debug().Str("guard_id", id).Msg("guard disabled by policy")
			continue
		}
		if _, ok := pol.Lookup(id); !ok {
			log.Debug().Str("guard_id", id).Err(policy.ErrMissing).Msg("using safe default")
		}
		mode := gp.Mode
		if mode == "" {
			mode = m.defaultMode
		}

		out, next := m.invoke(ctx, log, g, working, gp)

		entry, err := m.log.Append(auditCtx, audit.Record{
			RunID:       res.RunID,
			GuardID:     id,
			EntityKinds: kinds(out.Detections),
			Severities:  severities(out.Detections),
			Action:      out.Action,
			Fault:       out.Fault,
		})
		if err != nil {
			log.Error().Err(err).Str("guard_id", id).Msg("audit append failed, aborting run")
			res.Status = StatusFailed
			res.Err = err
			runErr = err
			break
		}
		out.Sequence = entry.Sequence
		res.Outcomes = append(res.Outcomes, out)

		if out.Err != nil && mode == policy.ModeFailFast {
			res.Status = StatusFailed
			res.Err = out.Err
			break
		}
		if out.Action == audit.ActionBlocked {
			res.Status = StatusBlocked
			break
		}
		working = next
	}

	res.OutputText = working
	res.FinishedAt = m.now()
	res.Duration = time.Since(start)

	span.SetAttributes(attribute.String("run.status", string(res.Status)))
	if res.Status == StatusFailed {
		span.SetStatus(codes.Error, redact.Redact(res.Err.Error()))
	}
	log.Debug().
		Str("status", string(res.Status)).
		Int("guards_run", len(res.Outcomes)).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, runErr
}

// invoke runs one guard and returns its outcome and the text the next
// guard should see.
func (m *Manager) invoke(ctx context.Context, log zerolog.Logger, g guard.Guard, text string, gp policy.GuardPolicy) (GuardOutcome, string) {
	id := g.ID()
	_, span := m.tracer.Start(ctx, "safelayer.guard", trace.WithAttributes(attribute.String("guard.id", id)))
	defer span.End()

	start := time.Now()
	out := GuardOutcome{GuardID: id, Action: audit.ActionNone}
	next := text

	var fault *GuardFault
	detections, err := check(g, text)
	if err != nil {
		fault = &GuardFault{GuardID: id, Stage: StageCheck, Err: err}
	} else {
		out.Detections = accept(g, detections, gp.Threshold)
		if len(out.Detections) > 0 {
			switch gp.Action {
			case policy.ActionBlock:
				out.Action = audit.ActionBlocked
			case policy.ActionWarn:
				out.Action = audit.ActionWarned
			default:
				masked, err := mask(g, text, out.Detections)
				if err != nil {
					fault = &GuardFault{GuardID: id, Stage: StageMask, Err: err}
					break
				}
				out.Action = audit.ActionMasked
				next = masked
			}
		}
	}
	out.Duration = time.Since(start)

	if fault != nil {
		out.Err = fault
		out.Fault = fault.Kind()
		span.RecordError(fault)
		span.SetStatus(codes.Error, out.Fault)
		log.Warn().
			Str("guard_id", id).
			Str("fault", out.Fault).
			Str("error", redact.Redact(fault.Err.Error())).
			Msg("guard fault")
	}

	span.SetAttributes(
		attribute.String("guard.action", out.Action),
		attribute.Int("guard.detections", len(out.Detections)),
	)
	log.Debug().
		Str("guard_id", id).
		Str("action", out.Action).
		Int("detections", len(out.Detections)).
		Dur("duration", out.Duration).
		Msg("guard finished")
	return out, next
}

// accept drops detections under threshold and fills in the guard id and
// explanation. The guard's slice is not modified.
func accept(g guard.Guard, detections []guard.Detection, threshold float64) []guard.Detection {
	var out []guard.Detection
	for _, d := range detections {
		if d.Score() < threshold {
			continue
		}
		if d.GuardID == "" {
			d.GuardID = g.ID()
		}
		if d.Explanation == "" {
			d.Explanation = guard.Explain(g, d)
		}
		out = append(out, d)
	}
	return out
}

func check(g guard.Guard, text string) (ds []guard.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return g.Check(text)
}

func mask(g guard.Guard, text string, ds []guard.Detection) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return g.Mask(text, ds)
}

func kinds(ds []guard.Detection) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Kind
	}
	return out
}

func severities(ds []guard.Detection) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d.Severity)
	}
	return out
}

func hashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
