package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/makalah-ai/contextgov/skill"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Dry-run validation of the skill every stage would use",
	Long: `Audit validates, for each of the 13 paper stages, the skill version that is
about to go live: the newest draft, else the newest published version, else
the active one. Stages without a skill or without versions fail.

Skills are read from the database, or from a folder of skill files with --dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var store skill.Store
		if dir != "" {
			files, err := loadSkillDir(dir)
			if err != nil {
				return err
			}
			store = newDirStore(files)
		} else {
			s, done, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer done()
			store = s
		}

		return runAudit(ctx, cmd.OutOrStdout(), store, asJSON)
	},
}

func init() {
	auditCmd.Flags().String("dir", "", "audit a folder of skill files instead of the database")
	auditCmd.Flags().Bool("json", false, "output the report as JSON")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(ctx context.Context, w io.Writer, store skill.Store, asJSON bool) error {
	resolver := skill.NewResolver(store, skill.WithResolverLogger(newLogger()))
	report, err := resolver.Audit(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, r := range report.Results {
			status := "OK"
			if !r.OK {
				status = "FAIL"
			}
			version := "-"
			if r.Version > 0 {
				version = fmt.Sprintf("v%d", r.Version)
			}
			fmt.Fprintf(w, "%-4s %-20s %-5s %s\n", status, r.StageScope, version, r.Source)
			for _, issue := range r.Issues {
				fmt.Fprintf(w, "     - %s\n", issue)
			}
		}
		fmt.Fprintf(w, "\n%d/%d stages passed\n", report.PassedStages, report.TotalStages)
	}

	if !report.Success {
		return fmt.Errorf("%w: %d stages failed", errValidationFailed, report.FailedStages)
	}
	return nil
}
