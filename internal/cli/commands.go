package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/insight-dice/backend/internal/config"
	"github.com/zhouzirui/insight-dice/backend/internal/repository"
)

var (
	jsonOutput bool
	envFile    string
)

var errorLabel = color.New(color.FgRed)

// StatsSource opens the repository the commands read from.
type StatsSource func(ctx context.Context) (repository.Repository, error)

// openFromEnv loads configuration and opens the configured repository.
func openFromEnv(ctx context.Context) (repository.Repository, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return repository.Open(ctx, cfg.Store, zap.NewNop())
}

// NewRootCmd builds the insightctl command tree.
func NewRootCmd(open StatsSource) *cobra.Command {
	if open == nil {
		open = openFromEnv
	}

	root := &cobra.Command{
		Use:   "insightctl [command] [flags]",
		Short: "insightctl - analytics for the Insight Dice backend",
		Long: `insightctl reads the throw store configured by STORE_DRIVER and DATABASE_URL
and reports usage statistics.

Examples:
  # Print statistics
  insightctl stats

  # Export statistics as CSV files
  insightctl export --out ./reports`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	root.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	root.PersistentFlags().StringVar(&envFile, "env", "", "Path to a .env file to load")

	root.AddCommand(newStatsCmd(open))
	root.AddCommand(newExportCmd(open))
	return root
}

func newStatsCmd(open StatsSource) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print throw statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			stats, err := repo.Stats(cmd.Context(), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("compute stats: %w", err)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			return PrintStats(cmd.OutOrStdout(), stats)
		},
	}
}

func newExportCmd(open StatsSource) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write statistics to CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			now := time.Now().UTC()
			stats, err := repo.Stats(cmd.Context(), now)
			if err != nil {
				return fmt.Errorf("compute stats: %w", err)
			}

			files, err := Export(outDir, stats, now)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string][]string{"files": files})
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write CSV files into")
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	root := NewRootCmd(nil)
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.ExecuteContext(context.Background()); err != nil {
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Join(errors.New("encode output"), err)
	}
	return nil
}
