// Package contextgov governs the conversation context of a long-running,
// multi-stage paper-writing assistant.
//
// Each chat turn goes through a Governor, which does two things:
//
//   - resolves the instruction block for the current paper stage from the
//     operator-managed stage skills, validating the active skill and falling
//     back to built-in instructions when it is missing or non-compliant
//   - reduces the conversation to the model's token budget with the
//     compaction priority chain (chitchat strip, completed-stage folding,
//     LLM summary, stage-detail signal) and a last-resort brute prune
//
// # Quick Start
//
//	pool, _ := pgxpool.New(ctx, connString)
//	store := storage.NewPostgresStore(pool)
//
//	gov, err := contextgov.New(
//	    contextgov.Config{
//	        Skills: store,
//	        Model:  "claude-sonnet-4-5-20250929",
//	    },
//	    contextgov.WithSessionStore(store),
//	    contextgov.WithSummarizer(compaction.GeneratorFunc(callModel)),
//	    contextgov.WithLogger(slog.Default()),
//	)
//
//	turn, err := gov.PrepareTurn(ctx, contextgov.TurnInput{
//	    SessionID:            sessionID,
//	    Messages:             messages,
//	    FallbackInstructions: builtinInstructions,
//	    AuthToken:            token,
//	})
//
// turn.Messages and turn.Instructions are ready to send. When
// turn.ShrinkStageDetail is set the caller should render less per-stage
// detail in its system prompt.
//
// # Hooks
//
// Register observers on the governor's registry:
//
//	gov.Hooks().Register(hooks.DefaultLoggingHooks())
//
// # Packages
//
//   - compaction: the priority chain, token estimate, budget monitor
//   - skill: stage skill validation, resolution and pre-activation audit
//   - storage: PostgreSQL stores (pgx and database/sql)
//   - paper: stages, boundaries and the decision digest
//   - hooks: observability hooks
//   - maintenance: retention cleanup of runtime conflict records
package contextgov
