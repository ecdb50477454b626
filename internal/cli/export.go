package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"bikedash/internal/config"
	"bikedash/internal/exporter"
	api "bikedash/pkg/contracts/api/v1"
)

type ExportCmd struct {
	cli   *CLI
	file  string
	out   string
	start string
	end   string
}

func newExportCmd(cli *CLI) *cobra.Command {
	ec := &ExportCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every chart table of a data file to an XLSX workbook",
		RunE:  cli.runE(ec.run),
	}

	cmd.Flags().StringVarP(&ec.file, "file", "f", "", "Daily rental CSV or XLSX file (default: newest file in the data directory)")
	cmd.Flags().StringVar(&ec.out, "out", "", "Workbook path (default: a timestamped name in the export directory)")
	cmd.Flags().StringVar(&ec.start, "start", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ec.end, "end", "", "Last day to include (YYYY-MM-DD)")

	return cmd
}

func (ec *ExportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	info, err := ec.cli.loadDataset(ctx, ec.file)
	if err != nil {
		return err
	}

	dash, err := ec.cli.dashboards.Build(ctx, info.ID, api.DashboardQuery{Start: ec.start, End: ec.end})
	if err != nil {
		return err
	}

	out := ec.out
	if out == "" {
		out = ec.cli.paths.ExportPath(config.ExportFileName("bikedash", "xlsx", dash.Range.Start, dash.Range.End, time.Now()))
	}

	workbook := exporter.NewWorkbookExporter(ec.cli.logger)
	if err := exporter.SaveFile(out, func(w io.Writer) error {
		return workbook.Write(w, dash)
	}); err != nil {
		return fmt.Errorf("failed to export workbook: %w", err)
	}

	ec.cli.logger.InfoContext(ctx, "Workbook exported",
		slog.String("path", out),
		slog.Int("charts", len(dash.Charts)))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
