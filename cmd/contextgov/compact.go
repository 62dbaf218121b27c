package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/makalah-ai/contextgov"
	"github.com/makalah-ai/contextgov/compaction"
	"github.com/makalah-ai/contextgov/hooks"
	anthropicgen "github.com/makalah-ai/contextgov/internal/anthropic"
	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
	"github.com/makalah-ai/contextgov/types"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Dry-run the compaction chain on an exported conversation",
	Long: `Compact runs one turn of the context governor on a conversation exported as
JSON:

  {"messages": [{"id": "m1", "role": "user", "content": "..."}],
   "paperSession": {"currentStage": "outline", "stageMessageBoundaries": [...]}}

A paperSession enables paper mode. With --summarize the LLM summary step
calls the Anthropic API (CONTEXTGOV_ANTHROPIC_API_KEY). With --skills the
stage instructions are resolved from a folder of skill files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := compactOptions{}
		opts.input, _ = cmd.Flags().GetString("input")
		opts.skillsDir, _ = cmd.Flags().GetString("skills")
		opts.window, _ = cmd.Flags().GetInt("window")
		opts.threshold, _ = cmd.Flags().GetInt("threshold")
		opts.keepLastN, _ = cmd.Flags().GetInt("keep-last-n")
		opts.summarize, _ = cmd.Flags().GetBool("summarize")
		opts.withMessages, _ = cmd.Flags().GetBool("messages")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runCompact(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	compactCmd.Flags().String("input", "-", "conversation JSON file, - for stdin")
	compactCmd.Flags().String("skills", "", "folder of skill files used to resolve stage instructions")
	compactCmd.Flags().Int("window", 0, "model context window in tokens (default from the configured model)")
	compactCmd.Flags().Int("threshold", 0, "absolute compaction threshold in tokens")
	compactCmd.Flags().Int("keep-last-n", compaction.DefaultKeepLastN, "messages kept by the brute prune")
	compactCmd.Flags().Bool("summarize", false, "enable the LLM summary step")
	compactCmd.Flags().Bool("messages", false, "include the compacted messages in the output")

	rootCmd.AddCommand(compactCmd)
}

type compactOptions struct {
	input        string
	skillsDir    string
	window       int
	threshold    int
	keepLastN    int
	summarize    bool
	withMessages bool

	// generator overrides the Anthropic generator built for --summarize.
	generator compaction.TextGenerator
}

// conversationFile is the JSON export read by compact and budget.
type conversationFile struct {
	Messages     []types.Message `json:"messages"`
	PaperSession *paper.Session  `json:"paperSession,omitempty"`
}

// compactReport is the output of compact.
type compactReport struct {
	RequestID             string               `json:"requestId"`
	ResolvedAtPriority    compaction.Priority  `json:"resolvedAtPriority"`
	Triggered             bool                 `json:"triggered"`
	Threshold             int                  `json:"threshold"`
	OriginalTokens        int                  `json:"originalTokens"`
	FinalTokens           int                  `json:"finalTokens"`
	OriginalMessages      int                  `json:"originalMessages"`
	FinalMessages         int                  `json:"finalMessages"`
	StrippedChitchatCount int                  `json:"strippedChitchatCount"`
	CompactedStages       []paper.StageID      `json:"compactedStages"`
	LLMSummarized         bool                 `json:"llmSummarized"`
	Pruned                bool                 `json:"pruned"`
	ShrinkStageDetail     bool                 `json:"shrinkStageDetail"`
	Instructions          *skill.ResolveResult `json:"instructions,omitempty"`
	Messages              []types.Message      `json:"messages,omitempty"`
}

func readConversation(stdin io.Reader, path string) (*conversationFile, error) {
	var r io.Reader = stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var conv conversationFile
	if err := json.NewDecoder(r).Decode(&conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

func runCompact(ctx context.Context, stdin io.Reader, w io.Writer, opts compactOptions) error {
	conv, err := readConversation(stdin, opts.input)
	if err != nil {
		return err
	}

	files := []*skillFile{}
	if opts.skillsDir != "" {
		if files, err = loadSkillDir(opts.skillsDir); err != nil {
			return err
		}
	}

	logger := newLogger()
	govOpts := []contextgov.Option{
		contextgov.WithLogger(logger),
		contextgov.WithKeepLastN(opts.keepLastN),
	}

	generator := opts.generator
	if opts.summarize && generator == nil {
		key := viper.GetString("anthropic_api_key")
		if key == "" {
			return fmt.Errorf("--summarize needs CONTEXTGOV_ANTHROPIC_API_KEY")
		}
		client := anthropic.NewClient(option.WithAPIKey(key))
		generator = anthropicgen.NewGenerator(&client, anthropicgen.WithModel(viper.GetString("summarizer_model")))
	}
	if opts.summarize {
		govOpts = append(govOpts, contextgov.WithSummarizer(generator))
	}

	gov, err := contextgov.New(contextgov.Config{
		Skills: newDirStore(files),
		Model:  viper.GetString("model"),
	}, govOpts...)
	if err != nil {
		return err
	}
	if viper.GetBool("verbose") {
		gov.Hooks().Register(hooks.NewVerboseLoggingHooks(log.New(os.Stderr, "", log.LstdFlags)))
	} else {
		gov.Hooks().Register(hooks.NewLoggingHooks(log.New(os.Stderr, "", log.LstdFlags)))
	}

	turn, err := gov.PrepareTurn(ctx, contextgov.TurnInput{
		Messages:            conv.Messages,
		PaperSession:        conv.PaperSession,
		ContextWindow:       opts.window,
		CompactionThreshold: opts.threshold,
	})
	if err != nil {
		return err
	}

	res := turn.Compaction
	report := compactReport{
		RequestID:             turn.RequestID,
		ResolvedAtPriority:    res.ResolvedAtPriority,
		Triggered:             res.Triggered,
		Threshold:             res.Threshold,
		OriginalTokens:        res.OriginalTokens,
		FinalTokens:           compaction.EstimateTokens(turn.Messages),
		OriginalMessages:      len(conv.Messages),
		FinalMessages:         len(turn.Messages),
		StrippedChitchatCount: res.StrippedChitchatCount,
		CompactedStages:       res.CompactedStages,
		LLMSummarized:         res.LLMSummarized,
		Pruned:                turn.Pruned,
		ShrinkStageDetail:     turn.ShrinkStageDetail,
		Instructions:          turn.Instructions,
	}
	if opts.withMessages {
		report.Messages = turn.Messages
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
