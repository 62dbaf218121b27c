package contextgov

import (
	"context"

	"github.com/makalah-ai/contextgov/compaction"
	"github.com/makalah-ai/contextgov/hooks"
	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
	"github.com/makalah-ai/contextgov/types"
)

// Logger is the structured logger used by the governor and handed to the
// resolver and the compaction chain. *slog.Logger satisfies it.
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

// internalConfig holds the full governor configuration including optional parameters
type internalConfig struct {
	skills skill.Store
	model  string

	logger      Logger
	hooks       *hooks.Registry
	generator   compaction.TextGenerator
	compaction  *compaction.Config
	validator   *skill.Validator
	sessions    SessionStore
	messageID   types.MessageIDExtractor
	pruneEnable bool
}

// SessionStore loads paper sessions for turns that name a session ID.
// storage.Store satisfies it.
type SessionStore interface {
	GetPaperSession(ctx context.Context, sessionID string) (*paper.Session, error)
}

// newInternalConfig creates a new internal config from the public Config
func newInternalConfig(cfg Config) *internalConfig {
	return &internalConfig{
		skills:      cfg.Skills,
		model:       cfg.Model,
		logger:      noopLogger{},
		hooks:       hooks.NewRegistry(),
		compaction:  compaction.DefaultConfig(),
		messageID:   types.MessageID,
		pruneEnable: true,
	}
}

// Option is a functional option for configuring a Governor
type Option func(*internalConfig) error

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(c *internalConfig) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithHooks replaces the hook registry
func WithHooks(registry *hooks.Registry) Option {
	return func(c *internalConfig) error {
		if registry != nil {
			c.hooks = registry
		}
		return nil
	}
}

// WithSummarizer enables LLM summarization (P3) through generator
func WithSummarizer(generator compaction.TextGenerator) Option {
	return func(c *internalConfig) error {
		c.generator = generator
		return nil
	}
}

// WithCompactionConfig replaces the compaction chain configuration with a
// copy of cfg. Apply it before WithKeepLastN.
func WithCompactionConfig(cfg *compaction.Config) Option {
	return func(c *internalConfig) error {
		if cfg == nil {
			return nil
		}
		cp := *cfg
		cp.ApplyDefaults()
		if err := cp.Validate(); err != nil {
			return NewGovernorError("WithCompactionConfig", ErrInvalidConfig).
				WithContext("reason", err.Error())
		}
		c.compaction = &cp
		return nil
	}
}

// WithKeepLastN sets how many non-system messages the brute prune keeps
func WithKeepLastN(n int) Option {
	return func(c *internalConfig) error {
		if n <= 0 {
			return NewGovernorError("WithKeepLastN", ErrInvalidConfig).
				WithContext("keep_last_n", n)
		}
		c.compaction.KeepLastN = n
		return nil
	}
}

// WithBrutePrune enables or disables the brute prune after an unresolved chain
func WithBrutePrune(enabled bool) Option {
	return func(c *internalConfig) error {
		c.pruneEnable = enabled
		return nil
	}
}

// WithValidator replaces the resolver's skill validator
func WithValidator(v *skill.Validator) Option {
	return func(c *internalConfig) error {
		c.validator = v
		return nil
	}
}

// WithSessionStore lets turns name a paper session by ID instead of passing it
func WithSessionStore(store SessionStore) Option {
	return func(c *internalConfig) error {
		c.sessions = store
		return nil
	}
}

// WithMessageIDExtractor sets how persisted message ids are read for stage folding
func WithMessageIDExtractor(fn types.MessageIDExtractor) Option {
	return func(c *internalConfig) error {
		if fn != nil {
			c.messageID = fn
		}
		return nil
	}
}
