// Package main is the entry point for the contextgov CLI: validating and
// auditing stage skills, managing skill versions, and dry-running the
// compaction chain on exported conversations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the contextgov CLI.
var rootCmd = &cobra.Command{
	Use:   "contextgov",
	Short: "Govern the conversation context of the paper-writing assistant",
	Long: `contextgov checks the stage skills injected into the assistant's system prompt
and dry-runs the context compaction chain.

Skill documents can be validated from files, audited as a folder or from the
database before activation, and imported or activated in the database.
Exported conversations can be compacted or checked against a context window.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./contextgov.yaml or ~/.config/contextgov/contextgov.yaml)")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("driver", "pgx", "database driver: pgx or sql")
	rootCmd.PersistentFlags().Bool("migrate", false, "apply the database schema before running")
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug output to stderr")

	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = viper.BindPFlag("migrate", rootCmd.PersistentFlags().Lookup("migrate"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("contextgov")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "contextgov"))
		}
	}

	viper.SetEnvPrefix("CONTEXTGOV")
	viper.AutomaticEnv()

	viper.SetDefault("driver", "pgx")
	viper.SetDefault("model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("summarizer_model", "claude-3-5-haiku-20241022")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns the CLI's slog logger. Debug output needs --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
