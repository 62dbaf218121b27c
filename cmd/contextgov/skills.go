package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/makalah-ai/contextgov/maintenance"
	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
	"github.com/makalah-ai/contextgov/storage"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage stage skill versions in the database",
}

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import skill files as new versions",
	Long: `Import saves each skill file as a new version of its stage skill. The status
comes from --status, else the file's front matter, else active. Activating a
version demotes the previously active one to published.

Files that fail validation are rejected unless --force is set; draft imports
are never checked, since audit covers them before activation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		force, _ := cmd.Flags().GetBool("force")

		ctx := commandContext(cmd)
		store, done, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer done()

		return runImport(ctx, cmd.OutOrStdout(), store, args, skill.VersionStatus(status), force)
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate SKILL_ID VERSION",
	Short: "Activate a stored skill version",
	Long: `Activate makes VERSION the active version of SKILL_ID. The version is
validated against its stage policy first; use --force to skip the check.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[1])
		if err != nil || version <= 0 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		force, _ := cmd.Flags().GetBool("force")

		ctx := commandContext(cmd)
		store, done, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer done()

		return runActivate(ctx, cmd.OutOrStdout(), store, args[0], version, force)
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List runtime conflicts logged by the resolver",
	RunE: func(cmd *cobra.Command, args []string) error {
		stageName, _ := cmd.Flags().GetString("stage")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		var stage paper.StageID
		if stageName != "" {
			s, err := paper.ParseStage(stageName)
			if err != nil {
				return err
			}
			stage = s
		}

		ctx := commandContext(cmd)
		store, done, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer done()

		return runConflicts(ctx, cmd.OutOrStdout(), store, stage, limit, asJSON)
	},
}

var pruneConflictsCmd = &cobra.Command{
	Use:   "prune-conflicts",
	Short: "Delete runtime conflicts older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		ctx := commandContext(cmd)
		store, done, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer done()

		return runPruneConflicts(ctx, cmd.OutOrStdout(), store, olderThan)
	},
}

func init() {
	importCmd.Flags().String("status", "", "version status: draft, published or active")
	importCmd.Flags().Bool("force", false, "import files that fail validation")
	activateCmd.Flags().Bool("force", false, "activate without validating")
	conflictsCmd.Flags().String("stage", "", "only list conflicts of this stage")
	conflictsCmd.Flags().Int("limit", storage.DefaultConflictLimit, "maximum number of conflicts")
	conflictsCmd.Flags().Bool("json", false, "output conflicts as JSON")
	pruneConflictsCmd.Flags().Duration("older-than", maintenance.DefaultConflictRetention, "retention window")

	skillsCmd.AddCommand(importCmd, activateCmd, conflictsCmd, pruneConflictsCmd)
	rootCmd.AddCommand(skillsCmd)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runImport(ctx context.Context, w io.Writer, store storage.Store, paths []string, status skill.VersionStatus, force bool) error {
	for _, p := range paths {
		f, err := loadSkillFile(p)
		if err != nil {
			return err
		}

		st := f.Status
		if status != "" {
			st = status
		}
		switch st {
		case skill.StatusDraft, skill.StatusPublished, skill.StatusActive:
		default:
			return fmt.Errorf("unknown status %q", st)
		}

		if st != skill.StatusDraft && !force {
			if v := skill.Validate(f.Skill.StageScope, f.Skill); !v.OK {
				return fmt.Errorf("%s: %w: %s", p, errValidationFailed, strings.Join(v.Codes(), ", "))
			}
		}

		sk := f.Skill
		sk.Version = 0
		if err := store.SaveSkillVersion(ctx, &sk, st); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		fmt.Fprintf(w, "%s: %s v%d (%s)\n", p, sk.SkillID, sk.Version, st)
	}
	return nil
}

func runActivate(ctx context.Context, w io.Writer, store storage.Store, skillID string, version int, force bool) error {
	if !force {
		sk, _, err := store.GetSkillVersion(ctx, skillID, version)
		if err != nil {
			return err
		}
		if v := skill.Validate(sk.StageScope, *sk); !v.OK {
			return fmt.Errorf("%s v%d: %w: %s", skillID, version, errValidationFailed, strings.Join(v.Codes(), ", "))
		}
	}

	if err := store.ActivateSkillVersion(ctx, skillID, version); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s v%d is active\n", skillID, version)
	return nil
}

func runConflicts(ctx context.Context, w io.Writer, store storage.Store, stage paper.StageID, limit int, asJSON bool) error {
	conflicts, err := store.ListRuntimeConflicts(ctx, stage, limit)
	if err != nil {
		return err
	}

	if asJSON {
		if conflicts == nil {
			conflicts = []*skill.RuntimeConflict{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conflicts)
	}

	for _, c := range conflicts {
		version := "-"
		if c.Version > 0 {
			version = fmt.Sprintf("v%d", c.Version)
		}
		fmt.Fprintf(w, "%s  %-20s %-5s %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"), c.StageScope, version, c.Message)
		if len(c.IssueCodes) > 0 {
			fmt.Fprintf(w, "     codes: %s\n", strings.Join(c.IssueCodes, ", "))
		}
	}
	fmt.Fprintf(w, "%d conflicts\n", len(conflicts))
	return nil
}

func runPruneConflicts(ctx context.Context, w io.Writer, store maintenance.ConflictStore, retention time.Duration) error {
	cleanup := maintenance.NewCleanup(store, &maintenance.CleanupConfig{ConflictRetention: retention})
	result := cleanup.RunOnce(ctx)
	if len(result.Errors) > 0 {
		return errors.Join(result.Errors...)
	}
	fmt.Fprintf(w, "deleted %d conflicts created before %s\n", result.ConflictsDeleted, result.Horizon.Format(time.RFC3339))
	return nil
}
