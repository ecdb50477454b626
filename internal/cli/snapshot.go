package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"bikedash/internal/snapshot"
)

type SnapshotCmd struct {
	cli  *CLI
	opts snapshot.Options
}

func newSnapshotCmd(cli *CLI) *cobra.Command {
	sc := &SnapshotCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a PNG of a running dashboard page with headless Chrome",
		RunE:  cli.runE(sc.run),
	}

	cmd.Flags().StringVar(&sc.opts.URL, "url", "", "Dashboard page URL, e.g. http://localhost:8080/?dataset=latest")
	cmd.Flags().StringVar(&sc.opts.Out, "out", "", "Output PNG path")
	cmd.Flags().StringVar(&sc.opts.WaitSelector, "wait-selector", snapshot.DefaultWaitSelector, "CSS selector to wait for before capturing")
	cmd.Flags().DurationVar(&sc.opts.Timeout, "timeout", snapshot.DefaultTimeout, "Overall capture timeout")
	cmd.Flags().IntVar(&sc.opts.Width, "width", snapshot.DefaultWidth, "Viewport width in pixels")
	cmd.Flags().IntVar(&sc.opts.Height, "height", snapshot.DefaultHeight, "Viewport height in pixels")
	cmd.Flags().StringVar(&sc.opts.ExecPath, "chrome", "", "Chrome or Chromium executable (default: found on PATH)")

	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (sc *SnapshotCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	start := time.Now()

	if err := snapshot.CaptureFile(ctx, sc.opts, sc.cli.logger); err != nil {
		return err
	}

	sc.cli.logger.InfoContext(ctx, "Snapshot captured",
		slog.String("url", sc.opts.URL),
		slog.String("path", sc.opts.Out),
		slog.Duration("duration", time.Since(start)))
	fmt.Fprintln(cmd.OutOrStdout(), sc.opts.Out)
	return nil
}
