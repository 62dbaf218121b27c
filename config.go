package contextgov

import (
	"fmt"

	"github.com/makalah-ai/contextgov/skill"
)

// ModelInfo contains model-specific parameters
type ModelInfo struct {
	MaxContextTokens int
}

// KnownModels maps model IDs to their context windows
var KnownModels = map[string]ModelInfo{
	// Claude 4 models
	"claude-sonnet-4-5-20250929": {MaxContextTokens: 200000},
	"claude-opus-4-5-20251101":   {MaxContextTokens: 200000},
	"claude-haiku-4-5-20251001":  {MaxContextTokens: 200000},
	// Claude 3.5 models
	"claude-3-5-sonnet-20241022": {MaxContextTokens: 200000},
	"claude-3-5-haiku-20241022":  {MaxContextTokens: 200000},
	// OpenAI-compatible gateways
	"gpt-4o":      {MaxContextTokens: 128000},
	"gpt-4o-mini": {MaxContextTokens: 128000},
	"gpt-4.1":     {MaxContextTokens: 1047576},
}

// GetModelInfo returns model info. Unknown models get a zero window, which
// the compaction chain replaces with its configured default.
func GetModelInfo(model string) ModelInfo {
	if info, ok := KnownModels[model]; ok {
		return info
	}
	return ModelInfo{}
}

// Config holds the required configuration for a Governor.
//
// Example:
//
//	store := storage.NewPostgresStore(pool)
//	gov, _ := contextgov.New(contextgov.Config{
//	    Skills: store,
//	    Model:  "claude-sonnet-4-5-20250929",
//	})
type Config struct {
	// Skills is the store the resolver reads active stage skills from (required)
	Skills skill.Store

	// Model selects the default context window from KnownModels. A turn's
	// ContextWindow overrides it.
	Model string
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Skills == nil {
		return fmt.Errorf("%w: skill store is required", ErrInvalidConfig)
	}
	return nil
}
