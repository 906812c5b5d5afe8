package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FranksOps/dogbook/internal/content"
	"github.com/FranksOps/dogbook/internal/report"
	"github.com/FranksOps/dogbook/internal/seed"
	"github.com/FranksOps/dogbook/internal/storage"
	"github.com/FranksOps/dogbook/internal/topic"
	"github.com/FranksOps/dogbook/internal/verify"
	"github.com/spf13/cobra"
)

func newCollectCmd(opts *rootOptions) *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Search news and stage generated topics as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := parseRegions(regions)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			c, err := a.collector()
			if err != nil {
				return err
			}
			results, err := c.Collect(ctx, rs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := 0
			for _, r := range a.registry.Regions() {
				topics, ok := results[r]
				if !ok {
					continue
				}
				fmt.Fprintf(out, "%s: %d topics\n", r, len(topics))
				total += len(topics)
			}
			fmt.Fprintf(out, "Total: %d topics\n", total)
			fmt.Fprintf(out, "Brave API usage: %d/%d\n", a.quota.Used(), a.quota.Limit())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&regions, "regions", nil, "regions to collect (default all)")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Publish staged topics as content files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			stats, err := a.materializer().Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Generated: %d\nSkipped: %d\nRejected: %d\n", stats.Generated, stats.Skipped, stats.Rejected)
			return err
		},
	}
}

func newPipelineCmd(opts *rootOptions) *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Collect then generate in one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := parseRegions(regions)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			p, err := a.pipeline()
			if err != nil {
				return err
			}
			res, runErr := p.Run(ctx, rs)
			if err := report.WriteRun(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringSliceVar(&regions, "regions", nil, "regions to run (default all)")
	return cmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the content tree and ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			rep, err := a.verifier().Run(ctx)
			if err != nil {
				return err
			}
			switch format {
			case "json":
				err = verify.WriteJSON(cmd.OutOrStdout(), rep)
			case "text":
				err = verify.WriteText(cmd.OutOrStdout(), rep)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			if rep.ExitCode() != 0 {
				return errVerifyFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write sample topics without calling any API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := parseRegions(regions)
			if err != nil {
				return err
			}
			n, err := seed.New(content.NewTree(opts.cfg.ContentDir), opts.cfg.LedgerPath(), opts.logger).Run(rs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d test topics\n", n)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&regions, "regions", nil, "regions to seed (default all)")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		runID   string
		reg     string
		outcome string
		since   string
		limit   int
		format  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize recorded collection runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.Filter{
				RunID:   runID,
				Region:  reg,
				Outcome: storage.Outcome(outcome),
				Limit:   limit,
			}
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					return err
				}
				filter.Since = &t
			}

			ctx := cmd.Context()
			audit, err := openAudit(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer audit.Close()

			records, err := audit.Query(ctx, filter)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), format, report.GenerateSummary(records))
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "only this run ID")
	cmd.Flags().StringVar(&reg, "region", "", "only this region")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only this outcome: topic, no_results, no_topic, error")
	cmd.Flags().StringVar(&since, "since", "", "only records newer than a duration (24h) or date (2006-01-02)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum records, newest first (0 = all)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or html")
	return cmd
}

func writeSummary(w io.Writer, format string, s report.Summary) error {
	switch format {
	case "text":
		return report.WriteText(w, s)
	case "json":
		return report.WriteJSON(w, s)
	case "html":
		return report.WriteHTML(w, s)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// parseSince accepts a Go duration counted back from now or a date.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return now.Add(-d), nil
	}
	t, err := topic.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want a duration or a date", s)
	}
	return t, nil
}
