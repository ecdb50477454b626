// Package cli implements the bikedash command line: headless summaries,
// workbook and chart exports, and page snapshots of a running server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bikedash/internal/config"
	"bikedash/internal/dataprocessing"
	apierrors "bikedash/internal/errors"
	"bikedash/internal/files"
	"bikedash/internal/infrastructure"
	"bikedash/internal/services"
	"bikedash/internal/snapshot"
	"bikedash/internal/validation"
	"bikedash/pkg/contracts"
	"bikedash/pkg/contracts/domain"
)

// Options configure a CLI.
type Options struct {
	// Config is used as is when set; otherwise it is loaded from --config
	// and the environment.
	Config    *config.Config
	Output    io.Writer
	ErrOutput io.Writer
}

// CLI represents the command-line interface
type CLI struct {
	opts    Options
	rootCmd *cobra.Command

	configFile string
	verbose    bool
	started    bool

	cfg        *config.Config
	paths      *config.Paths
	logger     *slog.Logger
	datasets   *services.DatasetService
	dashboards *services.DashboardService
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}

	cli := &CLI{opts: opts}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// Execute runs the command selected by os.Args.
func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

// ExecuteContext runs the selected command under ctx. Errors raised before a
// command starts running (unknown commands, bad or missing flags, config
// problems) are reported as usage errors.
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	err := cli.rootCmd.ExecuteContext(ctx)
	if err != nil && !cli.started {
		return &usageError{err: err}
	}
	return err
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "bikedash",
		Short:             "Bike rental dashboard tools",
		Version:           contracts.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setup,
	}
	cmd.SetVersionTemplate(contracts.BuildString() + "\n")
	cmd.SetOut(cli.opts.Output)
	cmd.SetErr(cli.opts.ErrOutput)

	cmd.PersistentFlags().StringVarP(&cli.configFile, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log at debug level")

	cmd.AddCommand(newSummaryCmd(cli))
	cmd.AddCommand(newExportCmd(cli))
	cmd.AddCommand(newChartCmd(cli))
	cmd.AddCommand(newSnapshotCmd(cli))

	return cmd
}

// setup loads configuration and builds the in-process services shared by
// the subcommands.
func (cli *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg := cli.opts.Config
	if cfg == nil {
		var err error
		if cli.configFile != "" {
			cfg, err = config.LoadFrom(cli.configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	logCfg := cfg.Logging
	if cli.verbose {
		logCfg.Level = "debug"
	}
	logger, err := infrastructure.NewLoggerTo(logCfg, cli.opts.ErrOutput)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("failed to resolve paths: %w", err)
	}

	catalog, err := services.NewChartCatalog(cfg.Dashboard.Charts)
	if err != nil {
		return err
	}

	dash := cfg.Dashboard
	cli.cfg = cfg
	cli.paths = paths
	cli.logger = logger
	cli.datasets = services.NewDatasetService(
		services.NewDatasetStore(1),
		dataprocessing.NewLoader(logger),
		validation.NewFileValidator(logger, dash.MaxUploadBytes),
		nil,
		logger,
	)
	cli.dashboards = services.NewDashboardService(cli.datasets, catalog, dash, nil, logger)
	return nil
}

// runE marks the command as started before delegating, so failures from
// here on keep their own exit code.
func (cli *CLI) runE(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cli.started = true
		return run(cmd, args)
	}
}

// loadDataset loads file, or the newest rental file in the data directory
// when file is empty.
func (cli *CLI) loadDataset(ctx context.Context, file string) (domain.DatasetInfo, error) {
	ctx = infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID())
	if file == "" {
		latest, err := files.NewDiscovery(cli.paths.DataDir).LatestRentalFile("")
		if err != nil {
			return domain.DatasetInfo{}, err
		}
		file = latest.Path
	}
	info, err := cli.datasets.LoadFile(ctx, file, domain.SourceCLI)
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	cli.logger.DebugContext(ctx, "Dataset loaded",
		slog.String("file", file),
		slog.Int("records", info.RecordCount))
	return info, nil
}

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return apierrors.ExitOK
	case errors.As(err, &usage), errors.Is(err, snapshot.ErrInvalidOptions):
		return apierrors.ExitUsage
	}
	return apierrors.ExitCode(err)
}
