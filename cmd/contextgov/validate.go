package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/makalah-ai/contextgov/skill"
)

var errValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate stage skill files against the stage policy",
	Long: `Validate runs the stage policy validator on skill Markdown files. The stage
comes from the YAML front matter (stageScope) or the file name, e.g.
abstrak.md. Every violated rule is reported; the command fails when any
file does not pass.

With --html-dir a sanitized HTML preview of each file is written as well.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		htmlDir, _ := cmd.Flags().GetString("html-dir")
		return runValidate(cmd.OutOrStdout(), args, asJSON, htmlDir)
	},
}

func init() {
	validateCmd.Flags().Bool("json", false, "output results as JSON")
	validateCmd.Flags().String("html-dir", "", "write a sanitized HTML preview of each file to this directory")

	rootCmd.AddCommand(validateCmd)
}

// fileValidation is the per-file result of the validate command.
type fileValidation struct {
	Path    string        `json:"path"`
	Stage   string        `json:"stage"`
	OK      bool          `json:"ok"`
	Issues  []skill.Issue `json:"issues"`
	Preview string        `json:"preview,omitempty"`
}

func runValidate(w io.Writer, paths []string, asJSON bool, htmlDir string) error {
	results := make([]fileValidation, 0, len(paths))
	failed := 0

	for _, p := range paths {
		f, err := loadSkillFile(p)
		if err != nil {
			return err
		}

		v := skill.Validate(f.Skill.StageScope, f.Skill)
		res := fileValidation{
			Path:   p,
			Stage:  string(f.Skill.StageScope),
			OK:     v.OK,
			Issues: v.Issues,
		}
		if res.Issues == nil {
			res.Issues = []skill.Issue{}
		}
		if !v.OK {
			failed++
		}

		if htmlDir != "" {
			out, err := writePreview(htmlDir, p, f.Skill.Content)
			if err != nil {
				return err
			}
			res.Preview = out
		}
		results = append(results, res)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			status := "OK"
			if !r.OK {
				status = "FAIL"
			}
			fmt.Fprintf(w, "%-4s %s (%s)\n", status, r.Path, r.Stage)
			for _, issue := range r.Issues {
				fmt.Fprintf(w, "     - %s: %s\n", issue.Code, issue.Message)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", errValidationFailed, failed, len(results))
	}
	return nil
}

func writePreview(dir, path, content string) (string, error) {
	html, err := skill.RenderPreview(content)
	if err != nil {
		return "", fmt.Errorf("%s: render preview: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".html"
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
		return "", err
	}
	return out, nil
}
