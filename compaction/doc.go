// Package compaction keeps a conversation inside the model's context budget
// without losing decision-relevant history.
//
// When the estimated token count reaches the threshold, the chain tries
// increasingly expensive reductions and stops as soon as the estimate drops
// under it:
//
//   - P1 strips chitchat ("ok", "lanjut") from user turns. Deterministic.
//   - P2 (paper mode only) folds completed stages out of the transcript,
//     oldest first, and inserts a digest of their decisions after the system
//     prompt. Deterministic.
//   - P3 asks a TextGenerator to summarize the oldest block of messages.
//     The only step that calls out; failures degrade to a no-op.
//   - P4 (paper mode only) is a signal: the caller must shrink its own
//     rendering of stage detail.
//
// If the chain ends at PriorityNone after being triggered, the caller applies
// PruneMessages as a last resort.
//
// # Usage
//
//	chain := compaction.NewChain(nil, logger)
//	result := chain.Run(ctx, messages, compaction.Params{
//	    ContextWindow: 128000,
//	    IsPaperMode:   true,
//	    PaperSession:  session,
//	    Summarizer:    compaction.NewSummarizer(generator),
//	})
//	if result.NeedsPrune() {
//	    result.Messages = compaction.PruneMessages(result.Messages, 50)
//	}
//
// # Token Estimation
//
// Tokens are estimated as the UTF-16 length of plain-text content divided by
// 4, rounded up. Multi-part content counts as zero.
//
// # Thread Safety
//
// A Chain holds no per-call state and is safe for concurrent use.
package compaction
