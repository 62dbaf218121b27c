package compaction

import (
	"context"
	"errors"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/types"
)

// Logger interface for compaction logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Priority names the step of the chain that brought the conversation under
// the threshold.
type Priority string

const (
	// PriorityNone means the chain ended without reaching the threshold, or
	// was never triggered (see Result.Triggered).
	PriorityNone Priority = "none"

	// PriorityChitchat (P1) resolved by stripping chitchat.
	PriorityChitchat Priority = "P1"

	// PriorityStages (P2) resolved by folding completed stages.
	PriorityStages Priority = "P2"

	// PrioritySummary (P3) resolved by LLM summarization.
	PrioritySummary Priority = "P3"

	// PriorityStageDetail (P4) is a signal only: in paper mode the caller
	// must shrink its own rendering of stage detail.
	PriorityStageDetail Priority = "P4"
)

// Params are the per-turn inputs of the chain.
type Params struct {
	// ContextWindow is the model's context window in tokens. Non-positive
	// values use Config.DefaultContextWindow.
	ContextWindow int

	// CompactionThreshold is the absolute token threshold. When zero it is
	// derived from ContextWindow and Config.ThresholdRatio.
	CompactionThreshold int

	// IsPaperMode enables the stage-aware steps P2 and P4.
	IsPaperMode bool

	// PaperSession supplies stage boundaries and the decision digest.
	PaperSession *paper.Session

	// Summarizer enables P3. Nil skips it.
	Summarizer *Summarizer

	// MessageID extracts persisted ids for P2. Defaults to types.MessageID.
	MessageID types.MessageIDExtractor
}

// Result contains the outcome of one chain run.
type Result struct {
	// Messages is the reduced conversation, safe to send as is.
	Messages []types.Message

	// CompactedStages lists the stages folded by P2, oldest first.
	CompactedStages []paper.StageID

	// StrippedChitchatCount is the number of messages removed by P1.
	StrippedChitchatCount int

	// LLMSummarized reports whether a P3 summary replaced older messages.
	LLMSummarized bool

	// ResolvedAtPriority is the terminal state of the chain.
	ResolvedAtPriority Priority

	// Triggered is false when the input was already under the threshold.
	Triggered bool

	// Threshold is the token threshold the chain worked against.
	Threshold int

	// OriginalTokens and FinalTokens are estimates before and after.
	OriginalTokens int
	FinalTokens    int
}

// NeedsPrune reports whether the caller must apply its brute prune: the
// chain ran, did not resolve, and did not hand the problem to the caller's
// stage detail window.
func (r *Result) NeedsPrune() bool {
	return r.Triggered && r.ResolvedAtPriority == PriorityNone
}

// Chain runs the P1-P4 compaction priority chain.
// It holds no per-call state and is safe for concurrent use.
type Chain struct {
	config *Config
	logger Logger
}

// NewChain creates a Chain. If config is nil, the default configuration is used.
func NewChain(config *Config, logger Logger) *Chain {
	if config == nil {
		config = DefaultConfig()
	} else {
		config.ApplyDefaults()
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Chain{config: config, logger: logger}
}

// Config returns the chain's configuration.
func (c *Chain) Config() *Config {
	return c.config
}

// RunChain runs the chain with the default configuration and no logging.
func RunChain(ctx context.Context, messages []types.Message, params Params) *Result {
	return NewChain(nil, nil).Run(ctx, messages, params)
}

// Run reduces messages until the token estimate is under the threshold,
// trying the cheap deterministic steps first. It never fails: a failed P3
// call degrades to a no-op and the chain continues.
func (c *Chain) Run(ctx context.Context, messages []types.Message, params Params) *Result {
	threshold := params.CompactionThreshold
	if threshold <= 0 {
		threshold = c.config.ThresholdFor(params.ContextWindow)
	}

	result := &Result{
		Messages:           append([]types.Message(nil), messages...),
		CompactedStages:    []paper.StageID{},
		ResolvedAtPriority: PriorityNone,
		Threshold:          threshold,
		OriginalTokens:     EstimateTokens(messages),
	}
	defer func() {
		result.FinalTokens = EstimateTokens(result.Messages)
	}()

	if result.OriginalTokens < threshold {
		return result
	}
	result.Triggered = true

	c.logger.Info("compaction triggered",
		"tokens", result.OriginalTokens,
		"threshold", threshold,
		"paper_mode", params.IsPaperMode,
	)

	if c.stripChitchat(result, threshold) {
		return result
	}

	if params.IsPaperMode && params.PaperSession != nil && len(params.PaperSession.StageMessageBoundaries) > 0 {
		if c.compactStages(result, params, threshold) {
			return result
		}
	}

	if params.Summarizer != nil {
		if c.summarize(ctx, result, params, threshold) {
			return result
		}
	}

	if params.IsPaperMode {
		result.ResolvedAtPriority = PriorityStageDetail
		c.logger.Info("compaction P4: signal caller to shrink stage detail window",
			"tokens", EstimateTokens(result.Messages),
		)
		return result
	}

	c.logger.Warn("compaction chain exhausted without resolution",
		"tokens", EstimateTokens(result.Messages),
		"threshold", threshold,
	)
	return result
}

// stripChitchat runs P1 and reports whether the chain resolved.
func (c *Chain) stripChitchat(result *Result, threshold int) bool {
	before := len(result.Messages)
	result.Messages = stripChitchat(result.Messages, c.config.ChitchatShortLength, c.config.ChitchatMaxLength)
	result.StrippedChitchatCount = before - len(result.Messages)

	if result.StrippedChitchatCount > 0 {
		c.logger.Info("compaction P1: stripped chitchat",
			"count", result.StrippedChitchatCount,
			"tokens", EstimateTokens(result.Messages),
		)
	}

	if underThreshold(result.Messages, threshold) {
		result.ResolvedAtPriority = PriorityChitchat
		c.logger.Info("compaction complete", "resolved_at", PriorityChitchat)
		return true
	}
	return false
}

// compactStages runs P2, one boundary at a time, oldest first, and reports
// whether the chain resolved. The digest message is inserted once, after the
// last fold performed.
func (c *Chain) compactStages(result *Result, params Params, threshold int) bool {
	session := params.PaperSession
	resolved := false

	for _, boundary := range session.StageMessageBoundaries {
		reduced := ExcludeStageMessages(result.Messages, boundary, params.MessageID)
		if len(reduced) == len(result.Messages) {
			c.logger.Debug("compaction P2: boundary not present, skipping",
				"stage", boundary.Stage,
				"first_message_id", boundary.FirstMessageID,
			)
			continue
		}

		result.Messages = reduced
		result.CompactedStages = append(result.CompactedStages, boundary.Stage)
		c.logger.Info("compaction P2: compacted stage",
			"stage", boundary.Stage,
			"message_count", boundary.MessageCount,
			"tokens", EstimateTokens(result.Messages),
		)

		if underThreshold(result.Messages, threshold) {
			resolved = true
			break
		}
	}

	if digest, ok := BuildStageDigest(session.MemoryDigest, result.CompactedStages); ok {
		result.Messages = InsertAfterSystem(result.Messages, digest)
	}

	if resolved {
		result.ResolvedAtPriority = PriorityStages
		c.logger.Info("compaction complete",
			"resolved_at", PriorityStages,
			"stages_compacted", len(result.CompactedStages),
		)
	}
	return resolved
}

// summarize runs P3 and reports whether the chain resolved. Any summarizer
// failure is logged and treated as no improvement.
func (c *Chain) summarize(ctx context.Context, result *Result, params Params, threshold int) bool {
	var systemMessages, conversation []types.Message
	for _, msg := range result.Messages {
		if msg.IsSystem() {
			systemMessages = append(systemMessages, msg)
		} else {
			conversation = append(conversation, msg)
		}
	}

	count := c.config.SummaryCount(len(conversation), params.IsPaperMode)
	if count < c.config.MinSummaryCount {
		c.logger.Debug("compaction P3: too few messages to summarize", "count", count)
		return false
	}

	toSummarize := conversation[:count]
	toKeep := conversation[count:]

	prompt := GeneralChatSummaryPrompt()
	if params.IsPaperMode {
		label := "unknown"
		if params.PaperSession != nil && params.PaperSession.CurrentStage != "" {
			label = params.PaperSession.CurrentStage.Label()
		}
		prompt = PaperMidStageSummaryPrompt(label)
	}

	summary, err := params.Summarizer.Summarize(ctx, toSummarize, prompt)
	if err != nil {
		var cerr *CompactionError
		if errors.As(err, &cerr) && params.PaperSession != nil {
			cerr.WithSession(params.PaperSession.ID)
		}
		level := c.logger.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			level = c.logger.Warn
		}
		level("compaction P3: summarization failed, skipping", "error", err)
		return false
	}

	before := EstimateTokens(result.Messages)
	candidate := make([]types.Message, 0, len(systemMessages)+1+len(toKeep))
	candidate = append(candidate, systemMessages...)
	candidate = append(candidate, types.NewText(types.RoleSystem, WrapSummary(summary)))
	candidate = append(candidate, toKeep...)

	after := EstimateTokens(candidate)
	if after >= before {
		c.logger.Warn("compaction P3: summary did not reduce tokens, discarding",
			"before", before,
			"after", after,
		)
		return false
	}

	result.Messages = candidate
	result.LLMSummarized = true
	c.logger.Info("compaction P3: summarized messages",
		"count", count,
		"tokens", after,
	)

	if after < threshold {
		result.ResolvedAtPriority = PrioritySummary
		c.logger.Info("compaction complete", "resolved_at", PrioritySummary)
		return true
	}
	return false
}
