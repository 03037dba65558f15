package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/pevans/newsbrief"
	"github.com/pevans/newsbrief/extract"
	"github.com/pevans/newsbrief/fetch"
	"github.com/pevans/newsbrief/ledger"
	"github.com/pevans/newsbrief/output"
	"github.com/spf13/cobra"
)

type crawlOptions struct {
	date           string
	dateTo         string
	language       string
	entityLanguage string
}

func newCrawlCommand() *cobra.Command {
	opts := &crawlOptions{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvest every result page of one search",
		Long: `Crawl requests search result pages for a date range and language until
the portal reports the last page or the page bound is reached. Each page is
written as three gzip-compressed CSV tables.`,
		Example: `  newsbrief crawl --date 2024-01-15 --language de
  newsbrief crawl --date 2024-01-15 --date-to 2024-01-17 --max-pages 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.date, "date", getEnv("NEWSBRIEF_DATE", ""), "first publication date, YYYY-MM-DD (NEWSBRIEF_DATE)")
	flags.StringVar(&opts.dateTo, "date-to", getEnv("NEWSBRIEF_DATE_TO", ""), "last publication date, defaults to --date (NEWSBRIEF_DATE_TO)")
	flags.StringVar(&opts.language, "language", getEnv("NEWSBRIEF_LANGUAGE", "en"), "article language (NEWSBRIEF_LANGUAGE)")
	flags.StringVar(&opts.entityLanguage, "entity-language", getEnv("NEWSBRIEF_ENTITY_LANGUAGE", "all"), "entity language filter (NEWSBRIEF_ENTITY_LANGUAGE)")
	flags.String("output", "", "output root directory (NEWSBRIEF_OUTPUT_DIR)")
	flags.Int("max-pages", 0, "page bound (NEWSBRIEF_MAX_PAGES)")

	return cmd
}

func runCrawl(cmd *cobra.Command, opts *crawlOptions) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if opts.date == "" {
		return errors.New("--date is required")
	}
	from, err := parseDate(opts.date)
	if err != nil {
		return err
	}
	to, err := parseDate(opts.dateTo)
	if err != nil {
		return err
	}
	q := newsbrief.Query{
		DateFrom:       from,
		DateTo:         to,
		EntityLanguage: opts.entityLanguage,
		Language:       opts.language,
	}.WithDefaults()
	if err := q.Validate(); err != nil {
		return err
	}

	extractor, err := extract.New(cfg.Selectors, logger)
	if err != nil {
		return err
	}
	writer, err := output.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	var sink newsbrief.Sink = newsbrief.NewWriterSink(writer, logger)

	store, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	var run *ledger.Run
	if store != nil {
		defer store.Close()
		run, err = store.StartRun("search", q)
		if err != nil {
			return fmt.Errorf("failed to start run: %w", err)
		}
		sink = ledger.NewSink(sink, store, run.RunID)
		logger = logger.With("run", run.RunID.String())
	}

	client := fetch.NewClient(cfg.Timeout, cfg.UserAgent)
	crawler := newsbrief.NewCrawler(client, extractor, sink, &newsbrief.CrawlerConfig{
		BaseURL:  cfg.BaseURL,
		MaxPages: cfg.MaxPages,
	}, logger)

	start := time.Now()
	summary, runErr := crawler.Run(cmd.Context(), q)

	if store != nil {
		if err := store.FinishRun(run.RunID, summary.Outcome, summary.PagesEmitted, runErr); err != nil {
			logger.Error("Failed to record run outcome", "err", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("crawl failed after %d pages: %w", summary.PagesEmitted, runErr)
	}

	out := cmd.OutOrStdout()
	if summary.Outcome == newsbrief.OutcomeNoResults {
		fmt.Fprintf(out, "No results for %s (%s)\n", q.DateLabel(), q.Language)
		return nil
	}

	fmt.Fprintf(out, "Crawled %s (%s) in %s\n", q.DateLabel(), q.Language, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "  Pages:      %d\n", summary.PagesEmitted)
	fmt.Fprintf(out, "  Articles:   %d\n", summary.Articles)
	fmt.Fprintf(out, "  Entities:   %d\n", summary.Entities)
	fmt.Fprintf(out, "  Categories: %d\n", summary.Categories)
	fmt.Fprintf(out, "  Last page:  %s\n", summary.LastStatus)
	fmt.Fprintf(out, "  Output:     %s\n", writer.Root())

	return nil
}
