// Package action validates, guards and executes mutating actions on cloud
// resources, then confirms their effect with a follow-up read.
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/corral/internal/audit"
	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/internal/policy"
	"github.com/yairfalse/corral/pkg/resource"
)

// Guard decides whether a validated action may proceed.
type Guard interface {
	Evaluate(ctx context.Context, input policy.Input) policy.Decision
}

// Journal records action outcomes.
type Journal interface {
	Append(entryType audit.EntryType, resourceID string, data any) error
	AppendError(entryType audit.EntryType, resourceID string, data any, err error) error
}

// Recorder receives per-action metrics. *telemetry.Provider satisfies it.
type Recorder interface {
	RecordAction(ctx context.Context, kind, action, status string)
}

// Executor runs actions through validate, guard, mutate and verify.
type Executor struct {
	clients   awsapi.Clients
	validator *Validator
	handlers  map[dispatchKey]handler
	guard     Guard
	journal   Journal
	recorder  Recorder
	verify    bool
	tracer    trace.Tracer
	now       func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithGuard gates every mutation on a policy decision.
func WithGuard(g Guard) Option {
	return func(e *Executor) { e.guard = g }
}

// WithJournal appends every outcome to j.
func WithJournal(j Journal) Option {
	return func(e *Executor) { e.journal = j }
}

// WithRecorder attaches action metrics.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithVerify toggles the confirming read after a mutation. Enabled by default.
func WithVerify(enabled bool) Option {
	return func(e *Executor) { e.verify = enabled }
}

// WithClock overrides the outcome timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates an executor over clients.
func NewExecutor(clients awsapi.Clients, opts ...Option) *Executor {
	e := &Executor{
		clients:   clients,
		validator: NewValidator(clients),
		handlers:  dispatchTable(),
		verify:    true,
		tracer:    otel.Tracer("corral/action"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs only the pre-action check for req.
func (e *Executor) Validate(ctx context.Context, req resource.Request) (Validation, error) {
	h, err := e.lookup(req)
	if err != nil {
		return Validation{}, err
	}
	return h.validate(e.validator, ctx, req.ResourceID, req.Region), nil
}

func (e *Executor) lookup(req resource.Request) (handler, error) {
	if err := req.Validate(); err != nil {
		return handler{}, err
	}
	h, ok := e.handlers[dispatchKey{req.Kind, req.Action}]
	if !ok {
		return handler{}, fmt.Errorf("Unsupported action %s for resource type %s", req.Action, req.Kind)
	}
	return h, nil
}

// Execute carries out one action. It never panics and never returns an error;
// every failure is reported in the outcome.
func (e *Executor) Execute(ctx context.Context, req resource.Request) (out resource.Outcome) {
	ctx, span := e.tracer.Start(ctx, "action.execute", trace.WithAttributes(
		attribute.String("resource.id", req.ResourceID),
		attribute.String("resource.kind", string(req.Kind)),
		attribute.String("action", string(req.Action)),
	))
	defer span.End()

	entryType := audit.EntryFailed
	defer func() {
		if r := recover(); r != nil {
			log.Error().Ctx(ctx).
				Str("resource_id", req.ResourceID).
				Str("action", string(req.Action)).
				Interface("panic", r).
				Msg("action panicked")
			out = e.failed(req, "Unexpected error during action execution", fmt.Sprint(r))
			entryType = audit.EntryFailed
		}
		if !out.Success {
			span.SetStatus(codes.Error, out.Message)
		}
		e.record(ctx, entryType, out)
	}()

	out, entryType = e.run(ctx, req)
	return out
}

func (e *Executor) run(ctx context.Context, req resource.Request) (resource.Outcome, audit.EntryType) {
	h, err := e.lookup(req)
	if err != nil {
		return e.failed(req, err.Error(), err.Error()), audit.EntryFailed
	}

	v := h.validate(e.validator, ctx, req.ResourceID, req.Region)
	if !v.Valid {
		return e.failed(req, v.Reason, v.Reason), audit.EntryFailed
	}

	if e.guard != nil {
		decision := e.guard.Evaluate(ctx, policy.Input{
			Kind:       string(req.Kind),
			ResourceID: req.ResourceID,
			Region:     req.Region,
			Action:     string(req.Action),
			Metadata:   v.Metadata,
		})
		if !decision.Allowed {
			reasons := strings.Join(decision.Reasons, "; ")
			return e.failed(req, "Denied by policy: "+reasons, reasons), audit.EntryDenied
		}
	}

	reported, err := h.mutate(ctx, e.clients, req.ResourceID, req.Region)
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).
			Str("resource_id", req.ResourceID).
			Str("action", string(req.Action)).
			Msg("action failed")
		return e.failed(req, fmt.Sprintf("Failed to %s %s", h.verb, h.noun), err.Error()), audit.EntryFailed
	}

	out := e.outcome(req)
	out.Success = true
	out.VerificationStatus = resource.VerificationPending

	state := reported
	if e.verify {
		observed, reached, verr := h.verify(ctx, e.clients, req.ResourceID, req.Region)
		switch {
		case verr != nil:
			log.Debug().Ctx(ctx).Err(verr).Str("resource_id", req.ResourceID).Msg("verification read failed")
		case reached:
			out.VerificationStatus = resource.VerificationVerified
			state = observed
		default:
			state = observed
		}
	}
	if state == "" {
		state = "unknown"
	}
	out.Message = h.message(state)

	log.Info().Ctx(ctx).
		Str("resource_id", req.ResourceID).
		Str("kind", string(req.Kind)).
		Str("action", string(req.Action)).
		Str("verification_status", string(out.VerificationStatus)).
		Msg("action executed")

	return out, audit.EntryExecuted
}

func (e *Executor) outcome(req resource.Request) resource.Outcome {
	return resource.Outcome{
		ResourceID: req.ResourceID,
		Kind:       req.Kind,
		Region:     req.Region,
		Action:     req.Action,
		Timestamp:  e.now().UTC(),
	}
}

func (e *Executor) failed(req resource.Request, message, errText string) resource.Outcome {
	out := e.outcome(req)
	out.Message = message
	out.Error = errText
	out.VerificationStatus = resource.VerificationFailed
	return out
}

// record journals and counts an outcome. Journal failures are logged only.
func (e *Executor) record(ctx context.Context, entryType audit.EntryType, out resource.Outcome) {
	if e.recorder != nil {
		e.recorder.RecordAction(ctx, string(out.Kind), string(out.Action), string(out.VerificationStatus))
	}
	if e.journal == nil {
		return
	}

	var err error
	if out.Error != "" {
		err = e.journal.AppendError(entryType, out.ResourceID, out, errors.New(out.Error))
	} else {
		err = e.journal.Append(entryType, out.ResourceID, out)
	}
	if err != nil {
		log.Error().Ctx(ctx).Err(err).Str("resource_id", out.ResourceID).Msg("audit append failed")
	}
}
