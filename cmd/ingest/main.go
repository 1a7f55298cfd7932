package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/riskibarqy/sports-feed/internal/app"
	"github.com/riskibarqy/sports-feed/internal/config"
	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

// pipelineFactory builds the pipeline and returns a cleanup for whatever it opened.
type pipelineFactory func(ctx context.Context) (*usecase.Pipeline, func() error, error)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
		Service: cfg.ServiceName + "-ingest",
		Env:     cfg.AppEnv,
	})
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := func(ctx context.Context) (*usecase.Pipeline, func() error, error) {
		container, err := app.New(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return container.Pipeline, container.Close, nil
	}

	if err := newRootCommand(factory, os.Stdout).ExecuteContext(ctx); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(build pipelineFactory, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Run sports-feed ingestion jobs once",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		&cobra.Command{
			Use:   "run <job> [job...]",
			Short: "Run jobs in dependency order (use sync-all for every job)",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pipeline, cleanup, err := build(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = cleanup() }()

				result, runErr := pipeline.Run(cmd.Context(), jobrun.TriggerCLI, args...)
				if len(result.Outcomes) > 0 {
					payload, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
					if err != nil {
						return fmt.Errorf("encode result: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				}
				return runErr
			},
		},
		&cobra.Command{
			Use:   "jobs",
			Short: "List registered jobs in run order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				pipeline, cleanup, err := build(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = cleanup() }()

				for _, name := range pipeline.Jobs() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), usecase.SequenceSyncAll)
				return nil
			},
		},
	)

	return root
}
