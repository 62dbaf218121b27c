package contextgov

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/makalah-ai/contextgov/compaction"
	"github.com/makalah-ai/contextgov/hooks"
	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
	"github.com/makalah-ai/contextgov/types"
)

// Governor prepares the context of one chat turn: it resolves the stage
// instructions and reduces the conversation to the model's budget. It holds
// no per-turn state and is safe for concurrent use.
type Governor struct {
	config     *internalConfig
	resolver   *skill.Resolver
	chain      *compaction.Chain
	summarizer *compaction.Summarizer
}

// New creates a Governor.
func New(cfg Config, opts ...Option) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ic := newInternalConfig(cfg)
	for _, opt := range opts {
		if err := opt(ic); err != nil {
			return nil, err
		}
	}

	resolverOpts := []skill.ResolverOption{skill.WithResolverLogger(ic.logger)}
	if ic.validator != nil {
		resolverOpts = append(resolverOpts, skill.WithValidator(ic.validator))
	}

	g := &Governor{
		config:   ic,
		resolver: skill.NewResolver(ic.skills, resolverOpts...),
		chain:    compaction.NewChain(ic.compaction, ic.logger),
	}
	if ic.generator != nil {
		g.summarizer = compaction.NewSummarizer(ic.generator)
	}
	return g, nil
}

// Hooks returns the hook registry
func (g *Governor) Hooks() *hooks.Registry {
	return g.config.hooks
}

// Resolver returns the stage skill resolver, for audits.
func (g *Governor) Resolver() *skill.Resolver {
	return g.resolver
}

// TurnInput is everything the governor needs for one turn.
type TurnInput struct {
	// RequestID correlates logs and runtime conflicts. Generated when empty.
	RequestID string

	// Messages is the raw conversation, oldest first, system messages included.
	Messages []types.Message

	// PaperSession enables paper mode. When nil and SessionID is set, the
	// session is loaded through the configured SessionStore.
	PaperSession *paper.Session
	SessionID    string

	// Stage overrides PaperSession.CurrentStage for instruction resolution.
	Stage paper.StageID

	// FallbackInstructions are served whenever the active skill is unusable.
	FallbackInstructions string

	// AuthToken is forwarded to the skill store. Runtime conflicts are only
	// recorded when it is set.
	AuthToken string

	// ContextWindow overrides the window of the configured model.
	ContextWindow int

	// CompactionThreshold overrides the threshold derived from the window.
	CompactionThreshold int
}

// Turn is the prepared context of one turn.
type Turn struct {
	RequestID string

	// Messages is the conversation to send to the model.
	Messages []types.Message

	// Instructions is the stage instruction block. Nil outside paper mode.
	Instructions *skill.ResolveResult

	// Compaction is the outcome of the compaction chain.
	Compaction *compaction.Result

	// Pruned reports whether the brute prune ran after an unresolved chain.
	Pruned bool

	// ShrinkStageDetail asks the caller to shrink its stage detail rendering
	// (the chain ended at P4).
	ShrinkStageDetail bool
}

// PrepareTurn resolves the stage instructions and compacts in.Messages.
// Infrastructure failures degrade the result instead of failing the turn;
// errors are only returned for invalid input or a cancelled context.
func (g *Governor) PrepareTurn(ctx context.Context, in TurnInput) (*Turn, error) {
	requestID := in.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if err := ctx.Err(); err != nil {
		return nil, NewGovernorErrorWithRequest("PrepareTurn", requestID, err)
	}

	session := g.loadSession(ctx, in, requestID)

	stage := in.Stage
	if stage == "" && session != nil {
		stage = session.CurrentStage
	}
	if stage != "" && stage != paper.StageCompleted && !stage.IsValid() {
		return nil, NewGovernorErrorWithRequest("PrepareTurn", requestID,
			fmt.Errorf("%w: %w: %q", ErrInvalidTurn, paper.ErrUnknownStage, stage))
	}

	turn := &Turn{RequestID: requestID}

	if stage != "" {
		res := g.resolver.Resolve(ctx, skill.ResolveParams{
			Stage:                stage,
			FallbackInstructions: in.FallbackInstructions,
			AuthToken:            in.AuthToken,
			RequestID:            requestID,
		})
		turn.Instructions = &res
		g.fire("skill_resolved", g.config.hooks.TriggerSkillResolved(ctx, stage, res))
	}

	window := in.ContextWindow
	if window <= 0 {
		window = GetModelInfo(g.config.model).MaxContextTokens
	}

	params := compaction.Params{
		ContextWindow:       window,
		CompactionThreshold: in.CompactionThreshold,
		IsPaperMode:         session != nil,
		PaperSession:        session,
		Summarizer:          g.summarizer,
		MessageID:           g.config.messageID,
	}

	threshold := params.CompactionThreshold
	if threshold <= 0 {
		threshold = g.chain.Config().ThresholdFor(window)
	}
	if tokens := compaction.EstimateTokens(in.Messages); tokens >= threshold {
		g.fire("before_compaction", g.config.hooks.TriggerBeforeCompaction(ctx, requestID, tokens, threshold))
	}

	result := g.chain.Run(ctx, in.Messages, params)
	turn.Compaction = result
	turn.Messages = result.Messages
	turn.ShrinkStageDetail = result.ResolvedAtPriority == compaction.PriorityStageDetail

	if result.Triggered {
		g.fire("after_compaction", g.config.hooks.TriggerAfterCompaction(ctx, result))
	}

	if g.config.pruneEnable && result.NeedsPrune() && result.FinalTokens >= result.Threshold {
		before := len(turn.Messages)
		turn.Messages = compaction.PruneMessages(turn.Messages, g.chain.Config().KeepLastN)
		turn.Pruned = len(turn.Messages) < before
		if turn.Pruned {
			g.config.logger.Warn("brute prune applied",
				"request_id", requestID,
				"before", before,
				"after", len(turn.Messages),
			)
			g.fire("prune", g.config.hooks.TriggerPrune(ctx, before, len(turn.Messages)))
		}
	}

	return turn, nil
}

// loadSession returns the turn's paper session. A failed load is logged
// and the turn continues in general-chat mode.
func (g *Governor) loadSession(ctx context.Context, in TurnInput, requestID string) *paper.Session {
	if in.PaperSession != nil {
		return in.PaperSession
	}
	if in.SessionID == "" || g.config.sessions == nil {
		return nil
	}

	session, err := g.config.sessions.GetPaperSession(ctx, in.SessionID)
	if err != nil {
		level := g.config.logger.Error
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			level = g.config.logger.Warn
		}
		level("failed to load paper session",
			"request_id", requestID,
			"session_id", in.SessionID,
			"error", err,
		)
		return nil
	}
	return session
}

func (g *Governor) fire(hook string, err error) {
	if err != nil {
		g.config.logger.Warn("hook failed", "hook", hook, "error", err)
	}
}
