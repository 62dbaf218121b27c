package hooks

import (
	"context"
	"sync"

	"github.com/makalah-ai/contextgov/compaction"
	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
)

// SkillResolvedHook is called after stage instructions are resolved
type SkillResolvedHook func(ctx context.Context, stage paper.StageID, result skill.ResolveResult) error

// BeforeCompactionHook is called before the compaction chain runs
// Parameters: ctx, requestID, estimated tokens, threshold
type BeforeCompactionHook func(ctx context.Context, requestID string, tokens, threshold int) error

// AfterCompactionHook is called after the compaction chain ran
type AfterCompactionHook func(ctx context.Context, result *compaction.Result) error

// PruneHook is called when the caller-side brute prune was applied
// Parameters: ctx, messages before, messages after
type PruneHook func(ctx context.Context, before, after int) error

// Registry holds all registered hooks
type Registry struct {
	mu               sync.RWMutex
	skillResolved    []SkillResolvedHook
	beforeCompaction []BeforeCompactionHook
	afterCompaction  []AfterCompactionHook
	prune            []PruneHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		skillResolved:    []SkillResolvedHook{},
		beforeCompaction: []BeforeCompactionHook{},
		afterCompaction:  []AfterCompactionHook{},
		prune:            []PruneHook{},
	}
}

// OnSkillResolved registers a hook to be called after skill resolution
func (r *Registry) OnSkillResolved(hook SkillResolvedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skillResolved = append(r.skillResolved, hook)
}

// OnBeforeCompaction registers a hook to be called before compaction
func (r *Registry) OnBeforeCompaction(hook BeforeCompactionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeCompaction = append(r.beforeCompaction, hook)
}

// OnAfterCompaction registers a hook to be called after compaction
func (r *Registry) OnAfterCompaction(hook AfterCompactionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterCompaction = append(r.afterCompaction, hook)
}

// OnPrune registers a hook to be called after a brute prune
func (r *Registry) OnPrune(hook PruneHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune = append(r.prune, hook)
}

// TriggerSkillResolved calls all registered skill-resolved hooks
func (r *Registry) TriggerSkillResolved(ctx context.Context, stage paper.StageID, result skill.ResolveResult) error {
	r.mu.RLock()
	hooks := make([]SkillResolvedHook, len(r.skillResolved))
	copy(hooks, r.skillResolved)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, stage, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeCompaction calls all registered before-compaction hooks
func (r *Registry) TriggerBeforeCompaction(ctx context.Context, requestID string, tokens, threshold int) error {
	r.mu.RLock()
	hooks := make([]BeforeCompactionHook, len(r.beforeCompaction))
	copy(hooks, r.beforeCompaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, requestID, tokens, threshold); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterCompaction calls all registered after-compaction hooks
func (r *Registry) TriggerAfterCompaction(ctx context.Context, result *compaction.Result) error {
	r.mu.RLock()
	hooks := make([]AfterCompactionHook, len(r.afterCompaction))
	copy(hooks, r.afterCompaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerPrune calls all registered prune hooks
func (r *Registry) TriggerPrune(ctx context.Context, before, after int) error {
	r.mu.RLock()
	hooks := make([]PruneHook, len(r.prune))
	copy(hooks, r.prune)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, before, after); err != nil {
			return err
		}
	}
	return nil
}

// Register attaches every hook h implements. It accepts LoggingHooks,
// VerboseLoggingHooks, MetricsHooks or any value with matching methods.
func (r *Registry) Register(h any) {
	if v, ok := h.(interface {
		SkillResolved(context.Context, paper.StageID, skill.ResolveResult) error
	}); ok {
		r.OnSkillResolved(v.SkillResolved)
	}
	if v, ok := h.(interface {
		BeforeCompaction(context.Context, string, int, int) error
	}); ok {
		r.OnBeforeCompaction(v.BeforeCompaction)
	}
	if v, ok := h.(interface {
		AfterCompaction(context.Context, *compaction.Result) error
	}); ok {
		r.OnAfterCompaction(v.AfterCompaction)
	}
	if v, ok := h.(interface {
		Prune(context.Context, int, int) error
	}); ok {
		r.OnPrune(v.Prune)
	}
}
