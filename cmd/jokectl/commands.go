package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/service"
	"github.com/Khushalgogia/joke-manager-v12/internal/source"
	"github.com/Khushalgogia/joke-manager-v12/internal/source/staging"
	"github.com/Khushalgogia/joke-manager-v12/internal/source/transcript"
	"github.com/spf13/cobra"
)

func campaignCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "campaign <headline>",
		Short: "Generate a joke campaign for a headline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			format, _ := parseFormat(opts.output)
			result, genErr := a.Campaigns.Generate(cmd.Context(), strings.Join(args, " "), count)
			if result == nil {
				return genErr
			}
			out := cmd.OutOrStdout()
			if format == formatText {
				writeCampaignText(out, result)
			} else if err := render(out, format, result); err != nil {
				return err
			}
			return genErr
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of reference jokes to transplant (default from config)")
	return cmd
}

func historyCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [campaign id]",
		Short: "List archived campaigns, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Archive == nil {
				return fmt.Errorf("campaign archive is disabled; set storage.enabled")
			}

			format, _ := parseFormat(opts.output)
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				result, err := a.Archive.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if format == formatText {
					writeCampaignText(out, result)
					return nil
				}
				return render(out, format, result)
			}

			campaigns, err := a.Archive.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if format != formatText {
				return render(out, format, campaigns)
			}
			for _, c := range campaigns {
				fmt.Fprintf(out, "%s  %s  %6d bytes\n", c.ID, c.GeneratedAt.Format("2006-01-02 15:04"), c.Size)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of campaigns to list")
	return cmd
}

func searchCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the archive by theme similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Search.Search(cmd.Context(), &service.SearchRequest{Query: strings.Join(args, " "), Count: count})
			if err != nil {
				return err
			}
			format, _ := parseFormat(opts.output)
			if format != formatText {
				return render(cmd.OutOrStdout(), format, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Themes: %s\n", resp.Themes)
			for i, m := range resp.Results {
				fmt.Fprintf(out, "%2d. #%d  %.3f  %s\n", i+1, m.ID, m.Similarity, preview(m.SearchableText, 100))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Maximum results")
	return cmd
}

func addCmd(opts *rootOptions) *cobra.Command {
	req := &service.AddJokeRequest{}

	cmd := &cobra.Command{
		Use:   "add <joke text>",
		Short: "Add one joke, synthesizing its bridge",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			req.JokeText = strings.Join(args, " ")
			resp, err := a.Jokes.AddJoke(cmd.Context(), req)
			if err != nil {
				return err
			}
			format, _ := parseFormat(opts.output)
			if format != formatText {
				return render(cmd.OutOrStdout(), format, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added joke #%d (bridge: %t)\n", resp.ID, resp.HasBridge)
			if resp.BridgeContent != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Bridge: %s\n", resp.BridgeContent)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.RawText, "raw", "", "Raw transcript text of the joke")
	cmd.Flags().StringSliceVar(&req.Keywords, "keywords", nil, "Comma-separated keywords")
	cmd.Flags().StringVar(&req.Source, "source", "", "Source id, e.g. a video id")
	return cmd
}

func importCmd(opts *rootOptions) *cobra.Command {
	var (
		stagingID      string
		transcriptPath string
		sourceID       string
		language       string
		limit          int
		skipEnrichment bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import segments from a staged manifest or a transcript file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (stagingID == "") == (transcriptPath == "") {
				return fmt.Errorf("exactly one of --staging or --transcript is required")
			}
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var src source.Source
			if stagingID != "" {
				src = staging.NewAdapter(a.Config.Extraction.StagingDir, stagingID)
			} else {
				src = transcript.NewAdapter(transcriptPath, sourceID, language, a.Extractor)
			}

			ctx := logger.SetSourceID(cmd.Context(), src.GetSourceID())
			logger.CtxInfo(ctx, "Importing from %s: limit=%d, skip_enrichment=%v", src.GetDisplayName(), limit, skipEnrichment)

			stats, err := a.Ingest.IngestFromSource(ctx, src, limit, &service.IngestOptions{SkipEnrichment: skipEnrichment})
			if err != nil {
				return err
			}
			format, _ := parseFormat(opts.output)
			if format != formatText {
				return render(cmd.OutOrStdout(), format, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d added=%d skipped=%d failed=%d with_bridge=%d\n",
				stats.TotalItems, stats.AddedItems, stats.SkippedItems, stats.FailedItems, stats.BridgedItems)
			return nil
		},
	}
	cmd.Flags().StringVar(&stagingID, "staging", "", "Staged manifest id under extraction.staging_dir")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Plain-text transcript file to extract and import")
	cmd.Flags().StringVar(&sourceID, "source", "", "Source id for --transcript (default: file name)")
	cmd.Flags().StringVar(&language, "language", "english", "Transcript language")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum segments to import (0 = all)")
	cmd.Flags().BoolVar(&skipEnrichment, "skip-enrichment", false, "Store without bridges; fill them later with backfill")
	return cmd
}

func extractCmd(opts *rootOptions) *cobra.Command {
	var (
		sourceID string
		language string
		stage    bool
	)

	cmd := &cobra.Command{
		Use:   "extract <transcript file>",
		Short: "Extract joke segments from a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			// reuse the adapter's naming rule for the default source id
			id := transcript.NewAdapter(args[0], sourceID, language, nil).GetSourceID()
			report, err := a.Extractor.ExtractReport(cmd.Context(), id, string(text), language)
			if err != nil {
				return err
			}

			if stage {
				path, err := staging.WriteManifest(a.Config.Extraction.StagingDir, id, report.Segments)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Staged %d segments at %s\n", report.Count, path)
			}

			format, _ := parseFormat(opts.output)
			if format != formatText {
				return render(cmd.OutOrStdout(), format, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d segments from %d chunks (%d failed)\n", report.Count, report.ChunksProcessed, report.ChunksFailed)
			for i, seg := range report.Segments {
				fmt.Fprintf(out, "%3d. %s\n", i+1, preview(seg.SearchableContent, 120))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceID, "source", "", "Source id (default: file name)")
	cmd.Flags().StringVar(&language, "language", "english", "Transcript language")
	cmd.Flags().BoolVar(&stage, "stage", false, "Write the segments to a staging manifest for import")
	return cmd
}

func refreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <joke id>",
		Short: "Regenerate the bridge of one joke",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid joke id %q", args[0])
			}
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Jokes.RefreshBridge(cmd.Context(), id)
			if err != nil {
				return err
			}
			format, _ := parseFormat(opts.output)
			if format != formatText {
				return render(cmd.OutOrStdout(), format, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d: %s\n", resp.SegmentID, resp.BridgeContent)
			return nil
		},
	}
}

func backfillCmd(opts *rootOptions) *cobra.Command {
	var (
		batchSize int
		afterID   int64
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Generate bridges for jokes that lack one",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			format, _ := parseFormat(opts.output)
			for {
				report, err := a.Jokes.FillMissingBridges(cmd.Context(), afterID, batchSize)
				if err != nil {
					return err
				}
				if format != formatText {
					if err := render(cmd.OutOrStdout(), format, report); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), report.Message)
				}
				// failed jokes stay NULL; the cursor moves past them and the run ends at the last id
				if !all || report.Remaining == 0 || report.NextAfterID == afterID || cmd.Context().Err() != nil {
					return nil
				}
				afterID = report.NextAfterID
			}
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Jokes per batch (default from config)")
	cmd.Flags().Int64Var(&afterID, "after", 0, "Only fill jokes with a higher id")
	cmd.Flags().BoolVar(&all, "all", false, "Keep running batches until none remain")
	return cmd
}

func statsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show archive counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Search.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			format, _ := parseFormat(opts.output)
			if format != formatText {
				return render(cmd.OutOrStdout(), format, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "segments:              %d\n", stats.TotalSegments)
			fmt.Fprintf(out, "with bridge:           %d\n", stats.WithBridge)
			fmt.Fprintf(out, "without bridge:        %d\n", stats.WithoutBridge)
			fmt.Fprintf(out, "with bridge embedding: %d\n", stats.WithBridgeEmbedding)
			for src, n := range stats.Sources {
				fmt.Fprintf(out, "  %s: %d\n", src, n)
			}
			return nil
		},
	}
}
