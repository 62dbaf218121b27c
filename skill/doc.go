// Package skill validates and resolves the per-stage instruction documents
// ("skills") injected into the system prompt of a paper-writing assistant.
//
// A skill is Markdown with six mandatory level-2 sections:
//
//	## Objective
//	## Input Context
//	## Tool Policy
//	## Output Contract
//	## Guardrails
//	## Done Criteria
//
// Validate runs every policy rule and reports all violations at once. The
// rules are exported as named predicates (HasSection, ExtractOutputKeys,
// DeclaredSearchPolicy, HasPersistCompileInstruction, FindForbiddenPhrase,
// HasLivingChecklistLifecycle, MentionsLivingOutline) so they can be tested
// and reused on their own.
//
// # Resolution
//
// Resolver.Resolve sits on the hot path of every chat turn. It fails open
// to the caller's fallback instructions when the store is unavailable and
// fails closed when the active skill violates policy:
//
//	resolver := skill.NewResolver(store, skill.WithResolverLogger(logger))
//	res := resolver.Resolve(ctx, skill.ResolveParams{
//	    Stage:                paper.StageAbstrak,
//	    FallbackInstructions: builtinAbstrakInstructions,
//	    AuthToken:            token,
//	    RequestID:            requestID,
//	})
//	systemPrompt += res.Instructions
//
// Resolver.Audit is the pre-activation dry run over all stages.
package skill
