package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"text/template"

	"github.com/spf13/cobra"

	"bikedash/internal/exporter"
	api "bikedash/pkg/contracts/api/v1"
	"bikedash/pkg/contracts/domain"
)

const summaryTemplate = `{{.Dataset.Name}} ({{.RecordCount}} hari)
Periode: {{.Range.Start.Format "2006-01-02"}} s.d. {{.Range.End.Format "2006-01-02"}}
{{range .Metrics}}
{{.Label}}: {{.Value}}{{end}}
{{range .Charts}}
=== {{.Title}} ===
{{if .Table.Rows}}{{join (headers .Table)}}
{{range records .Table}}{{join .}}
{{end}}{{else}}Tidak ada data pada rentang ini.
{{end}}{{end}}`

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"headers": exporter.TableHeaders,
	"records": exporter.TableRecords,
	"join":    func(cells []string) string { return strings.Join(cells, "\t") },
}).Parse(summaryTemplate))

type SummaryCmd struct {
	cli    *CLI
	file   string
	start  string
	end    string
	charts []string
	format string
}

func newSummaryCmd(cli *CLI) *cobra.Command {
	sc := &SummaryCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard metrics and chart tables for a data file",
		RunE:  cli.runE(sc.run),
	}

	cmd.Flags().StringVarP(&sc.file, "file", "f", "", "Daily rental CSV or XLSX file (default: newest file in the data directory)")
	cmd.Flags().StringVar(&sc.start, "start", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sc.end, "end", "", "Last day to include (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&sc.charts, "charts", nil, "Chart IDs to compute (default: every configured chart)")
	cmd.Flags().StringVarP(&sc.format, "format", "o", "text", "Output format: text or json")

	return cmd
}

func (sc *SummaryCmd) run(cmd *cobra.Command, _ []string) error {
	if sc.format != "text" && sc.format != "json" {
		return &usageError{err: fmt.Errorf("unsupported format %q: use text or json", sc.format)}
	}

	ctx := cmd.Context()
	info, err := sc.cli.loadDataset(ctx, sc.file)
	if err != nil {
		return err
	}

	dash, err := sc.cli.dashboards.Build(ctx, info.ID, api.DashboardQuery{
		Start:  sc.start,
		End:    sc.end,
		Charts: sc.charts,
	})
	if err != nil {
		return err
	}

	if sc.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(dash)
	}
	return writeSummary(cmd.OutOrStdout(), dash)
}

// writeSummary renders dash as aligned plain text.
func writeSummary(w io.Writer, dash *domain.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := summaryTmpl.Execute(tw, dash); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	return tw.Flush()
}
