package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bikedash/internal/exporter"
	api "bikedash/pkg/contracts/api/v1"
	"bikedash/pkg/contracts/domain"
)

type ChartCmd struct {
	cli   *CLI
	file  string
	id    string
	out   string
	start string
	end   string
}

func newChartCmd(cli *CLI) *cobra.Command {
	cc := &ChartCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render one chart as PNG or its table as CSV",
		Long: "Render one chart of a data file. The output extension picks the format:\n" +
			".png draws the chart, .csv writes the aggregate table behind it.",
		RunE: cli.runE(cc.run),
	}

	cmd.Flags().StringVarP(&cc.file, "file", "f", "", "Daily rental CSV or XLSX file (default: newest file in the data directory)")
	cmd.Flags().StringVar(&cc.id, "id", "", "Chart ID, e.g. weather_mean")
	cmd.Flags().StringVar(&cc.out, "out", "", "Output path ending in .png or .csv")
	cmd.Flags().StringVar(&cc.start, "start", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cc.end, "end", "", "Last day to include (YYYY-MM-DD)")

	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (cc *ChartCmd) run(cmd *cobra.Command, _ []string) error {
	write, err := cc.writer()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	info, err := cc.cli.loadDataset(ctx, cc.file)
	if err != nil {
		return err
	}

	chart, err := cc.cli.dashboards.Chart(ctx, info.ID, cc.id, api.DashboardQuery{Start: cc.start, End: cc.end})
	if err != nil {
		return err
	}

	if err := exporter.SaveFile(cc.out, func(w io.Writer) error {
		return write(w, chart)
	}); err != nil {
		return fmt.Errorf("failed to write chart %s: %w", cc.id, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cc.out)
	return nil
}

// writer picks the encoder for the output extension.
func (cc *ChartCmd) writer() (func(io.Writer, domain.Chart) error, error) {
	switch strings.ToLower(filepath.Ext(cc.out)) {
	case ".png":
		dash := cc.cli.cfg.Dashboard
		return exporter.NewPNGRenderer(dash.RenderWidth, dash.RenderHeight).Render, nil
	case ".csv":
		csv := exporter.NewCSVWriter(cc.cli.paths)
		return func(w io.Writer, c domain.Chart) error {
			return csv.WriteTable(w, c.Table)
		}, nil
	}
	return nil, &usageError{err: fmt.Errorf("unsupported output %q: use a .png or .csv file", cc.out)}
}
