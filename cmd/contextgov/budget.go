package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/makalah-ai/contextgov"
	"github.com/makalah-ai/contextgov/compaction"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Check an exported conversation against the context window",
	Long: `Budget estimates the token size of a conversation (one token per four UTF-16
code units) and reports whether it crosses the warn, compaction and prune
thresholds of the context window. The window defaults to the configured
model's window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		window, _ := cmd.Flags().GetInt("window")
		pruneRatio, _ := cmd.Flags().GetFloat64("prune-ratio")
		asJSON, _ := cmd.Flags().GetBool("json")

		conv, err := readConversation(cmd.InOrStdin(), input)
		if err != nil {
			return err
		}
		if window <= 0 {
			window = contextgov.GetModelInfo(viper.GetString("model")).MaxContextTokens
		}
		return runBudget(cmd.OutOrStdout(), conv, window, pruneRatio, asJSON)
	},
}

func init() {
	budgetCmd.Flags().String("input", "-", "conversation JSON file, - for stdin")
	budgetCmd.Flags().Int("window", 0, "model context window in tokens")
	budgetCmd.Flags().Float64("prune-ratio", compaction.DefaultPruneRatio, "share of the window above which the brute prune applies")
	budgetCmd.Flags().Bool("json", false, "output the result as JSON")

	rootCmd.AddCommand(budgetCmd)
}

func runBudget(w io.Writer, conv *conversationFile, window int, pruneRatio float64, asJSON bool) error {
	res := compaction.CheckBudget(compaction.TotalChars(conv.Messages), window, pruneRatio)

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "messages:   %d\n", len(conv.Messages))
	fmt.Fprintf(w, "tokens:     %d / %d\n", res.TotalTokens, res.ContextWindow)
	fmt.Fprintf(w, "warn:       %-8d %s\n", res.WarnThreshold, yesNo(res.ShouldWarn))
	fmt.Fprintf(w, "compaction: %-8d %s\n", res.CompactionThreshold, yesNo(res.ShouldCompact))
	fmt.Fprintf(w, "prune:      %-8d %s\n", res.Threshold, yesNo(res.ShouldPrune))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "exceeded"
	}
	return "ok"
}
