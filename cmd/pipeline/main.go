package main

import (
	"context"
	"fmt"
	"health-export-pipeline/internal/config"
	"health-export-pipeline/internal/logger"
	"health-export-pipeline/internal/model"
	"health-export-pipeline/internal/pipeline"
	"health-export-pipeline/internal/store"
	"health-export-pipeline/pkg/utils"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "Convert a health export into flattened and daily summary CSV tables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return err
			}
			return convert(cmd.Context(), cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
	flags.String("input", config.DefaultInputPath, "export document to convert")
	flags.String("flattened", config.DefaultFlattenedPath, "flattened table output")
	flags.String("summary", config.DefaultSummaryPath, "daily summary table output")
	flags.String("store", "", "sqlite run history (disabled when empty)")
	flags.String("log-level", "info", "log level")
	bindFlags(v, cmd, map[string]string{
		"input.path":       "input",
		"output.flattened": "flattened",
		"output.summary":   "summary",
		"store.path":       "store",
		"log.level":        "log-level",
	})

	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func convert(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	defer log.Sync()

	if cfg.Store.Path != "" {
		if err := store.InitDB(cfg.Store.Path); err != nil {
			log.Error("❌ Failed to open run history", zap.String("path", cfg.Store.Path), zap.Error(err))
			return err
		}
		defer store.Close()
	}

	paths := pipeline.Paths{
		Input:     cfg.Input.Path,
		Flattened: cfg.Output.Flattened,
		Summary:   cfg.Output.Summary,
	}
	jobID := uuid.New().String()
	report, err := pipeline.Run(ctx, jobID, paths, pipeline.Options{
		UseCRLF: cfg.Output.CRLF,
		Logger:  log,
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}

	printReport(cmd, report, paths)
	if store.Enabled() {
		fmt.Fprintf(cmd.OutOrStdout(), "Run %s recorded in %s\n", utils.ShortID(jobID), cfg.Store.Path)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *model.RunReport, paths pipeline.Paths) {
	out := cmd.OutOrStdout()
	if report.FlattenedWritten {
		fmt.Fprintf(out, "Successfully converted %d data points to %s\n", report.FlattenedRows, paths.Flattened)
	} else {
		fmt.Fprintln(out, "No data points found; flattened table not written.")
	}
	if report.SummaryCreated {
		fmt.Fprintf(out, "Successfully created daily summary: %s\n", paths.Summary)
	} else {
		fmt.Fprintln(out, "No readings with a date and numeric quantity; daily summary not created.")
	}
}
