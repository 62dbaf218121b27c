package compaction

import (
	"fmt"
)

// Default configuration values.
const (
	DefaultContextWindow       = 128000 // Used when the provider config has no window
	DefaultThresholdRatio      = 0.85   // Compaction triggers above 85% of the window
	DefaultPruneRatio          = 0.80   // Brute prune threshold
	DefaultWarnRatio           = 0.60   // Budget warning threshold
	DefaultChitchatShortLength = 15     // Trimmed length below which a user turn may be chitchat
	DefaultChitchatMaxLength   = 50     // Raw length above which a user turn is never chitchat
	DefaultPaperSummaryRatio   = 0.3    // Share of conversation summarized in paper mode
	DefaultPaperSummaryMax     = 30     // Cap on summarized messages in paper mode
	DefaultChatSummaryRatio    = 0.4    // Share of conversation summarized in general chat
	DefaultChatSummaryMax      = 20     // Cap on summarized messages in general chat
	DefaultMinSummaryCount     = 3      // Below this P3 is skipped
	DefaultKeepLastN           = 50     // Messages kept by the brute prune
)

// Config holds the tunables of the compaction chain. Per-turn inputs such as
// the context window live in Params.
type Config struct {
	// ThresholdRatio converts a context window into a compaction threshold
	// when Params.CompactionThreshold is not set.
	// Default: 0.85
	ThresholdRatio float64

	// DefaultContextWindow is used when Params.ContextWindow is not positive.
	// Default: 128000
	DefaultContextWindow int

	// ChitchatShortLength is the exclusive upper bound of a chitchat
	// message's trimmed length.
	// Default: 15
	ChitchatShortLength int

	// ChitchatMaxLength is the inclusive upper bound of a chitchat message's
	// raw length.
	// Default: 50
	ChitchatMaxLength int

	// PaperSummaryRatio and PaperSummaryMax size the P3 block in paper mode.
	// Defaults: 0.3, 30
	PaperSummaryRatio float64
	PaperSummaryMax   int

	// ChatSummaryRatio and ChatSummaryMax size the P3 block in general chat.
	// Defaults: 0.4, 20
	ChatSummaryRatio float64
	ChatSummaryMax   int

	// MinSummaryCount is the smallest block P3 will summarize.
	// Default: 3
	MinSummaryCount int

	// KeepLastN is the number of non-system messages the brute prune keeps.
	// Default: 50
	KeepLastN int
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		ThresholdRatio:       DefaultThresholdRatio,
		DefaultContextWindow: DefaultContextWindow,
		ChitchatShortLength:  DefaultChitchatShortLength,
		ChitchatMaxLength:    DefaultChitchatMaxLength,
		PaperSummaryRatio:    DefaultPaperSummaryRatio,
		PaperSummaryMax:      DefaultPaperSummaryMax,
		ChatSummaryRatio:     DefaultChatSummaryRatio,
		ChatSummaryMax:       DefaultChatSummaryMax,
		MinSummaryCount:      DefaultMinSummaryCount,
		KeepLastN:            DefaultKeepLastN,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ThresholdRatio <= 0 || c.ThresholdRatio > 1.0 {
		return fmt.Errorf("%w: threshold_ratio must be between 0 and 1, got %f", ErrInvalidConfig, c.ThresholdRatio)
	}

	if c.DefaultContextWindow <= 0 {
		return fmt.Errorf("%w: default_context_window must be positive, got %d", ErrInvalidConfig, c.DefaultContextWindow)
	}

	if c.ChitchatShortLength <= 0 || c.ChitchatMaxLength < c.ChitchatShortLength {
		return fmt.Errorf("%w: chitchat lengths must satisfy 0 < short (%d) <= max (%d)",
			ErrInvalidConfig, c.ChitchatShortLength, c.ChitchatMaxLength)
	}

	if c.PaperSummaryRatio <= 0 || c.PaperSummaryRatio > 1.0 || c.ChatSummaryRatio <= 0 || c.ChatSummaryRatio > 1.0 {
		return fmt.Errorf("%w: summary ratios must be between 0 and 1", ErrInvalidConfig)
	}

	if c.PaperSummaryMax <= 0 || c.ChatSummaryMax <= 0 {
		return fmt.Errorf("%w: summary caps must be positive", ErrInvalidConfig)
	}

	if c.MinSummaryCount < 1 {
		return fmt.Errorf("%w: min_summary_count must be at least 1, got %d", ErrInvalidConfig, c.MinSummaryCount)
	}

	if c.KeepLastN <= 0 {
		return fmt.Errorf("%w: keep_last_n must be positive, got %d", ErrInvalidConfig, c.KeepLastN)
	}

	return nil
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.ThresholdRatio == 0 {
		c.ThresholdRatio = DefaultThresholdRatio
	}
	if c.DefaultContextWindow == 0 {
		c.DefaultContextWindow = DefaultContextWindow
	}
	if c.ChitchatShortLength == 0 {
		c.ChitchatShortLength = DefaultChitchatShortLength
	}
	if c.ChitchatMaxLength == 0 {
		c.ChitchatMaxLength = DefaultChitchatMaxLength
	}
	if c.PaperSummaryRatio == 0 {
		c.PaperSummaryRatio = DefaultPaperSummaryRatio
	}
	if c.PaperSummaryMax == 0 {
		c.PaperSummaryMax = DefaultPaperSummaryMax
	}
	if c.ChatSummaryRatio == 0 {
		c.ChatSummaryRatio = DefaultChatSummaryRatio
	}
	if c.ChatSummaryMax == 0 {
		c.ChatSummaryMax = DefaultChatSummaryMax
	}
	if c.MinSummaryCount == 0 {
		c.MinSummaryCount = DefaultMinSummaryCount
	}
	if c.KeepLastN == 0 {
		c.KeepLastN = DefaultKeepLastN
	}
}

// ContextWindow returns window, or the configured default when window is
// not positive.
func (c *Config) ContextWindow(window int) int {
	if window > 0 {
		return window
	}
	return c.DefaultContextWindow
}

// ThresholdFor returns the absolute token count that triggers compaction for
// the given context window.
func (c *Config) ThresholdFor(window int) int {
	return int(float64(c.ContextWindow(window)) * c.ThresholdRatio)
}

// SummaryCount returns how many of the oldest conversationLen non-system
// messages P3 summarizes.
func (c *Config) SummaryCount(conversationLen int, paperMode bool) int {
	if paperMode {
		return min(c.PaperSummaryMax, int(float64(conversationLen)*c.PaperSummaryRatio))
	}
	return min(c.ChatSummaryMax, int(float64(conversationLen)*c.ChatSummaryRatio))
}
