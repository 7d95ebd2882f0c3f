// internal/cli/run.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wpitallo/crawlee/internal/adaptive"
	"github.com/wpitallo/crawlee/internal/app"
	"github.com/wpitallo/crawlee/internal/engine"
	"github.com/wpitallo/crawlee/internal/export"
	"github.com/wpitallo/crawlee/internal/jsstate"
	"github.com/wpitallo/crawlee/internal/ui"
	urlutil "github.com/wpitallo/crawlee/internal/utils/url"
	"github.com/wpitallo/crawlee/pkg/models"
)

var (
	runExportPath   string
	runExportFormat string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <url> [url...]",
	Short: "Crawl starting from the given seed URLs",
	Long: `Crawl a site starting from one or more seed URLs, following links until the
queue is empty or the request cap is reached.

Each request is routed adaptively: pages that work without JavaScript are
fetched over plain HTTP, pages that need client-side rendering go through the
headless browser. The router learns per host, so after a handful of probes
most requests take the cheap path on static sites.

Extracted records accumulate in the dataset and survive across runs; an
interrupted crawl resumes where it left off.`,
	Example: `  # Crawl a site
  crawlee run https://example.com

  # Higher concurrency, capped at 200 requests
  crawlee run https://example.com -c 10 --max-requests 200

  # Probe every request while evaluating a new site
  crawlee run https://example.com --detect-ratio 1

  # Crawl and export the dataset when done
  crawlee run https://example.com --export data.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runExportPath, "export", "o", "", "Write the dataset to this file when the crawl finishes")
	runCmd.Flags().StringVar(&runExportFormat, "format", export.FormatJSON, "Export format: json, csv, or markdown")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	application := GetApp(cmd)
	if application == nil {
		return fmt.Errorf("application not initialized")
	}
	cfg := application.Config

	for _, seed := range args {
		if err := urlutil.ValidateURL(seed); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reclaim requests a previous run left in progress.
	if err := application.Queue.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset queue: %w", err)
	}

	added, err := application.Queue.Add(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to seed queue: %w", err)
	}
	fresh := 0
	for _, a := range added {
		if !a.AlreadyPresent {
			fresh++
		}
	}
	log.Info().Int("new", fresh).Int("seeds", len(args)).Msg("Queue seeded")

	crawler, err := application.NewCrawler(defaultHandler(cfg.LinkSelector, cfg.ContentSelector))
	if err != nil {
		return fmt.Errorf("failed to build crawler: %w", err)
	}

	bar := newProgressBar(cmd)
	eng := engine.New(application.Queue, crawler, engine.Options{
		Concurrency: cfg.Concurrency,
		MaxRequests: cfg.MaxRequests,
		OnRequestDone: func(s engine.Snapshot) {
			bar.Add(1)
			bar.Describe(fmt.Sprintf("%d handled, %d failed", s.Handled, s.Failed))
		},
	})

	snap, runErr := eng.Run(ctx)
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	if errors.Is(runErr, context.Canceled) {
		// An interrupt is a stop request, not a failure. Queue state is
		// saved, so the next run picks up the remainder.
		log.Info().Msg("Crawl interrupted")
		runErr = nil
	}

	printRunSummary(application, eng, crawler, snap)

	if runErr != nil {
		return runErr
	}

	if runExportPath != "" {
		exportCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		records, err := application.Dataset.All(exportCtx)
		if err != nil {
			return fmt.Errorf("failed to read dataset: %w", err)
		}
		if err := export.Save(records, runExportFormat, runExportPath); err != nil {
			return err
		}
		fmt.Printf("%s Exported %d records to %s\n\n", ui.Success("✓"), len(records), runExportPath)
	}

	return nil
}

// jsValueCap bounds how much of a harvested script global's value is kept on
// a record. State blobs can run to megabytes; records keep only a prefix.
const jsValueCap = 200

// defaultHandler extracts page metadata, inline script state, and the page
// markup, scoped to the content selector when one is set, then follows links
// matching the link selector.
func defaultHandler(linkSelector, contentSelector string) adaptive.Handler {
	return func(c *adaptive.Context) error {
		doc := c.Document()
		pageURL := c.Request.ResolvedURL()

		rec := models.Record{"url": pageURL}
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			rec["title"] = title
		}
		if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
			if desc = strings.TrimSpace(desc); desc != "" {
				rec["description"] = desc
			}
		}
		for name, val := range jsstate.Harvest(doc, pageURL) {
			if len(val) > jsValueCap {
				val = val[:jsValueCap] + "..."
			}
			rec["js:"+name] = val
		}

		extracted := false
		if contentSelector != "" {
			if sel := doc.Find(contentSelector); sel.Length() > 0 {
				rec["content"] = strings.TrimSpace(sel.Text())
				if html, err := sel.Html(); err == nil {
					rec["html"] = html
				}
				extracted = true
			} else {
				log.Debug().Str("url", pageURL).Str("selector", contentSelector).Msg("Selector matched nothing, keeping the whole page")
			}
		}
		if !extracted {
			if html, err := doc.Html(); err == nil {
				rec["html"] = html
			}
		}

		if err := c.PushData(rec); err != nil {
			return err
		}
		_, err := c.EnqueueLinks(linkSelector)
		return err
	}
}

// newProgressBar returns a live spinner, or a silent bar when quiet was
// requested or stderr is not a terminal.
func newProgressBar(cmd *cobra.Command) *progressbar.ProgressBar {
	quiet, _ := cmd.Flags().GetBool("quiet")
	if quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return progressbar.DefaultSilent(-1)
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

func printRunSummary(application *app.Application, eng *engine.Crawler, crawler *adaptive.Crawler, snap engine.Snapshot) {
	// The crawl context may already be cancelled by an interrupt; the summary
	// queries still need to run.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Println()
	fmt.Println(ui.Bold("Crawl finished"))
	fmt.Printf("  %s  %d requests in %s\n", ui.Accent("processed"), snap.Started, snap.Elapsed.Round(time.Millisecond))
	fmt.Printf("  %s    %d\n", ui.Success("handled"), snap.Handled)
	if snap.Failed > 0 {
		fmt.Printf("  %s     %d\n", ui.Error("failed"), snap.Failed)
	}

	routing := crawler.Stats()
	fmt.Printf("  %s    %d static, %d rendered, %d fallback\n", ui.Accent("routing"), routing.StaticCommits, routing.RenderRuns, routing.Fallbacks)
	if routing.Detections > 0 {
		fmt.Printf("  %s  %d probes fed back\n", ui.Accent("detection"), routing.Detections)
	}

	if qstats, err := application.Queue.Stats(ctx); err == nil {
		fmt.Printf("  %s      %d pending, %d handled, %d failed\n", ui.Accent("queue"), qstats.Pending, qstats.Handled, qstats.Failed)
	}
	if count, err := application.Dataset.Count(ctx); err == nil {
		fmt.Printf("  %s    %d records\n", ui.Accent("dataset"), count)
	}

	failures := eng.Stats().RecentFailures()
	if len(failures) > 0 {
		fmt.Println()
		fmt.Println(ui.Warn("Recent failures"))
		for _, ferr := range failures {
			fmt.Printf("  %s %v\n", ui.Error("✗"), ferr)
		}
	}
	fmt.Println()
}
