package hooks

import (
	"context"
	"log"

	"github.com/makalah-ai/contextgov/compaction"
	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
)

func reductionPct(result *compaction.Result) float64 {
	if result.OriginalTokens <= 0 {
		return 0
	}
	return float64(result.OriginalTokens-result.FinalTokens) / float64(result.OriginalTokens) * 100
}

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// SkillResolved logs where the stage instructions came from
func (h *LoggingHooks) SkillResolved(ctx context.Context, stage paper.StageID, result skill.ResolveResult) error {
	if result.SkillResolverFallback {
		h.logger.Printf("[ContextGov] Stage %s using fallback instructions: reason=%s", stage, result.FallbackReason)
	} else {
		h.logger.Printf("[ContextGov] Stage %s using skill %s v%d", stage, result.SkillID, result.Version)
	}
	return nil
}

// BeforeCompaction logs before the compaction chain runs
func (h *LoggingHooks) BeforeCompaction(ctx context.Context, requestID string, tokens, threshold int) error {
	h.logger.Printf("[ContextGov] Starting compaction for request %s: %d tokens over threshold %d", requestID, tokens, threshold)
	return nil
}

// AfterCompaction logs after the compaction chain ran
func (h *LoggingHooks) AfterCompaction(ctx context.Context, result *compaction.Result) error {
	h.logger.Printf("[ContextGov] Compaction complete: %d → %d tokens (%.1f%% reduction, resolved at %s)",
		result.OriginalTokens, result.FinalTokens, reductionPct(result), result.ResolvedAtPriority)
	return nil
}

// Prune logs a brute prune
func (h *LoggingHooks) Prune(ctx context.Context, before, after int) error {
	h.logger.Printf("[ContextGov] Pruned conversation: %d → %d messages", before, after)
	return nil
}

// VerboseLoggingHooks provides detailed logging for debugging
type VerboseLoggingHooks struct {
	logger *log.Logger
}

// NewVerboseLoggingHooks creates verbose logging hooks
func NewVerboseLoggingHooks(logger *log.Logger) *VerboseLoggingHooks {
	return &VerboseLoggingHooks{logger: logger}
}

// SkillResolved logs the full resolution outcome
func (h *VerboseLoggingHooks) SkillResolved(ctx context.Context, stage paper.StageID, result skill.ResolveResult) error {
	h.logger.Printf("[ContextGov][VERBOSE] === Skill Resolved: %s ===", stage)
	h.logger.Printf("[ContextGov][VERBOSE] Source: %s", result.Source)
	if result.SkillID != "" {
		h.logger.Printf("[ContextGov][VERBOSE] Skill: %s v%d", result.SkillID, result.Version)
	}
	if result.FallbackReason != "" {
		h.logger.Printf("[ContextGov][VERBOSE] Fallback reason: %s", result.FallbackReason)
	}
	for _, issue := range result.Issues {
		h.logger.Printf("[ContextGov][VERBOSE] Issue %s: %s", issue.Code, issue.Message)
	}
	return nil
}

// BeforeCompaction logs detailed compaction information
func (h *VerboseLoggingHooks) BeforeCompaction(ctx context.Context, requestID string, tokens, threshold int) error {
	h.logger.Printf("[ContextGov][VERBOSE] === Starting Compaction ===")
	h.logger.Printf("[ContextGov][VERBOSE] Request: %s", requestID)
	h.logger.Printf("[ContextGov][VERBOSE] Tokens: %d (threshold %d)", tokens, threshold)
	return nil
}

// AfterCompaction logs detailed compaction results
func (h *VerboseLoggingHooks) AfterCompaction(ctx context.Context, result *compaction.Result) error {
	h.logger.Printf("[ContextGov][VERBOSE] === Compaction Complete ===")
	h.logger.Printf("[ContextGov][VERBOSE] Resolved at: %s", result.ResolvedAtPriority)
	h.logger.Printf("[ContextGov][VERBOSE] Original tokens: %d", result.OriginalTokens)
	h.logger.Printf("[ContextGov][VERBOSE] Final tokens: %d", result.FinalTokens)
	h.logger.Printf("[ContextGov][VERBOSE] Chitchat stripped: %d", result.StrippedChitchatCount)
	if len(result.CompactedStages) > 0 {
		h.logger.Printf("[ContextGov][VERBOSE] Stages folded: %v", result.CompactedStages)
	}
	h.logger.Printf("[ContextGov][VERBOSE] LLM summarized: %t", result.LLMSummarized)
	h.logger.Printf("[ContextGov][VERBOSE] Reduction: %.1f%%", reductionPct(result))
	return nil
}

// Prune logs a brute prune
func (h *VerboseLoggingHooks) Prune(ctx context.Context, before, after int) error {
	h.logger.Printf("[ContextGov][VERBOSE] Pruned %d messages (%d → %d)", before-after, before, after)
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// SkillResolved records resolution metrics
func (h *MetricsHooks) SkillResolved(ctx context.Context, stage paper.StageID, result skill.ResolveResult) error {
	tags := map[string]string{"stage": string(stage), "source": string(result.Source)}
	if result.FallbackReason != "" {
		tags["reason"] = string(result.FallbackReason)
	}
	h.OnMetric("contextgov.skill.resolved", 1, tags)
	return nil
}

// AfterCompaction records compaction metrics
func (h *MetricsHooks) AfterCompaction(ctx context.Context, result *compaction.Result) error {
	tags := map[string]string{"priority": string(result.ResolvedAtPriority)}

	h.OnMetric("contextgov.compaction.original_tokens", float64(result.OriginalTokens), tags)
	h.OnMetric("contextgov.compaction.final_tokens", float64(result.FinalTokens), tags)
	h.OnMetric("contextgov.compaction.chitchat_stripped", float64(result.StrippedChitchatCount), tags)

	if result.OriginalTokens > 0 {
		h.OnMetric("contextgov.compaction.reduction_pct", reductionPct(result), tags)
	}

	return nil
}

// Prune records prune metrics
func (h *MetricsHooks) Prune(ctx context.Context, before, after int) error {
	h.OnMetric("contextgov.prune.removed", float64(before-after), nil)
	return nil
}
