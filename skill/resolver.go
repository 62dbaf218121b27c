package skill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/makalah-ai/contextgov/paper"
)

// Logger interface for resolver logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Store is the external skill store the resolver reads from and reports
// runtime conflicts to.
type Store interface {
	// GetActiveSkill returns the active skill of stage, or nil (or
	// ErrSkillNotFound) when there is none.
	GetActiveSkill(ctx context.Context, stage paper.StageID) (*StageSkill, error)

	// LogRuntimeConflict appends a conflict record.
	LogRuntimeConflict(ctx context.Context, conflict *RuntimeConflict) error
}

// Source says where resolved instructions came from.
type Source string

const (
	SourceSkill    Source = "skill"
	SourceFallback Source = "fallback"
)

// FallbackReason explains why fallback instructions were used.
type FallbackReason string

const (
	ReasonCompletedStage          FallbackReason = "completed_stage"
	ReasonNoActiveSkill           FallbackReason = "no_active_skill"
	ReasonRuntimeValidationFailed FallbackReason = "runtime_validation_failed"
	ReasonResolverError           FallbackReason = "resolver_error"
)

// ResolveParams are the inputs of one resolution.
type ResolveParams struct {
	Stage                paper.StageID
	FallbackInstructions string

	// AuthToken is forwarded to the store through the context. Runtime
	// conflicts are only logged when it is set.
	AuthToken string

	RequestID string
}

// ResolveResult carries the instructions to inject and their provenance.
// Instructions is always safe to use.
type ResolveResult struct {
	Instructions          string         `json:"instructions"`
	Source                Source         `json:"source"`
	SkillResolverFallback bool           `json:"skillResolverFallback"`
	SkillID               string         `json:"skillId,omitempty"`
	Version               int            `json:"version,omitempty"`
	FallbackReason        FallbackReason `json:"fallbackReason,omitempty"`

	// Issues lists the violations behind runtime_validation_failed.
	Issues []Issue `json:"issues,omitempty"`
}

// Resolver selects the instructions for a stage: the active skill when it
// passes validation, the caller's fallback otherwise. It never fails.
type Resolver struct {
	store     Store
	validator *Validator
	logger    Logger
	now       func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithValidator replaces the default validator.
func WithValidator(v *Validator) ResolverOption {
	return func(r *Resolver) {
		if v != nil {
			r.validator = v
		}
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:     store,
		validator: defaultValidator,
		logger:    noopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func fallback(p ResolveParams, reason FallbackReason) ResolveResult {
	return ResolveResult{
		Instructions:          p.FallbackInstructions,
		Source:                SourceFallback,
		SkillResolverFallback: true,
		FallbackReason:        reason,
	}
}

// Resolve picks the instructions for p.Stage. Store errors and panics become
// a resolver_error fallback; a skill that fails validation is never returned.
func (r *Resolver) Resolve(ctx context.Context, p ResolveParams) (result ResolveResult) {
	if p.Stage == paper.StageCompleted {
		return fallback(p, ReasonCompletedStage)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("skill resolver panicked", "stage", p.Stage, "panic", rec)
			result = fallback(p, ReasonResolverError)
		}
	}()

	res, err := r.resolve(WithAuthToken(ctx, p.AuthToken), p)
	if err != nil {
		r.logger.Error("error resolving active skill", "stage", p.Stage, "request_id", p.RequestID, "error", err)
		return fallback(p, ReasonResolverError)
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, p ResolveParams) (ResolveResult, error) {
	if r.store == nil {
		return ResolveResult{}, ErrNoStore
	}

	active, err := r.store.GetActiveSkill(ctx, p.Stage)
	if err != nil && !errors.Is(err, ErrSkillNotFound) {
		return ResolveResult{}, fmt.Errorf("get active skill for %s: %w", p.Stage, err)
	}
	if err != nil || active.IsBlank() {
		r.logger.Debug("no active skill, using fallback", "stage", p.Stage)
		return fallback(p, ReasonNoActiveSkill), nil
	}

	validation := r.validator.Validate(p.Stage, *active)
	if !validation.OK {
		r.logger.Warn("active skill failed runtime validation",
			"stage", p.Stage,
			"skill_id", active.SkillID,
			"version", active.Version,
			"issues", validation.Codes(),
		)
		r.logConflict(ctx, p, active, validation)

		res := fallback(p, ReasonRuntimeValidationFailed)
		res.SkillID = active.SkillID
		res.Version = active.Version
		res.Issues = validation.Issues
		return res, nil
	}

	return ResolveResult{
		Instructions:          active.Content,
		Source:                SourceSkill,
		SkillResolverFallback: false,
		SkillID:               active.SkillID,
		Version:               active.Version,
	}, nil
}

// logConflict makes a single best-effort attempt to record a runtime
// conflict. Failures are logged and dropped.
func (r *Resolver) logConflict(ctx context.Context, p ResolveParams, active *StageSkill, validation *ValidationResult) {
	if p.AuthToken == "" {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("runtime conflict logging panicked", "stage", p.Stage, "panic", rec)
		}
	}()

	conflict := &RuntimeConflict{
		ID:         uuid.NewString(),
		StageScope: p.Stage,
		SkillID:    active.SkillID,
		Version:    active.Version,
		Rule:       RuleValidationFailedRuntime,
		Message:    validation.FirstMessage(),
		IssueCodes: validation.Codes(),
		Severity:   SeverityWarning,
		Source:     ConflictSourceResolver,
		RequestID:  p.RequestID,
		CreatedAt:  r.now(),
	}
	if conflict.SkillID == "" {
		conflict.SkillID = paper.SkillID(p.Stage)
	}

	if err := r.store.LogRuntimeConflict(ctx, conflict); err != nil {
		r.logger.Error("failed to log runtime conflict", "stage", p.Stage, "error", err)
	}
}
