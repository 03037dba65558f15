package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsbrief"
	"github.com/pevans/newsbrief/ledger"
	"github.com/pevans/newsbrief/output"
	"github.com/pevans/newsbrief/page"
	"github.com/spf13/cobra"
)

type feedOptions struct {
	edition    string
	language   string
	duplicates bool
}

func newFeedCommand() *cobra.Command {
	opts := &feedOptions{}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Harvest the current RSS edition",
		Long: `Feed reads one NewsBrief RSS edition and writes its items as the same
three tables a search page produces, labelled "feed" instead of a page number.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.edition, "edition", getEnv("NEWSBRIEF_EDITION", "rtn"), "edition type (NEWSBRIEF_EDITION)")
	flags.StringVar(&opts.language, "language", getEnv("NEWSBRIEF_LANGUAGE", "en"), "edition language (NEWSBRIEF_LANGUAGE)")
	flags.BoolVar(&opts.duplicates, "duplicates", false, "include items flagged as duplicates")
	flags.String("output", "", "output root directory (NEWSBRIEF_OUTPUT_DIR)")

	return cmd
}

func runFeed(cmd *cobra.Command, opts *feedOptions) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	edition := newsbrief.EditionQuery{
		Type:       opts.edition,
		Language:   opts.language,
		Duplicates: opts.duplicates,
	}
	url, err := edition.URL(cfg.RSSURL)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	q := newsbrief.Query{DateFrom: today, Language: opts.language}.WithDefaults()

	store, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	var run *ledger.Run
	if store != nil {
		defer store.Close()
		run, err = store.StartRun("feed", q)
		if err != nil {
			return fmt.Errorf("failed to start run: %w", err)
		}
	}

	logger.Debug("Fetching edition", "url", url)
	paths, result, runErr := harvestFeed(cmd, url, cfg.UserAgent, cfg.Timeout, writer, q, opts.language)

	if store != nil {
		if runErr == nil {
			runErr = recordFeedPage(store, run.RunID, result)
		}
		outcome, pages := newsbrief.OutcomeCompleted, 1
		if runErr != nil {
			outcome, pages = newsbrief.OutcomeFailed, 0
		}
		if err := store.FinishRun(run.RunID, outcome, pages, runErr); err != nil {
			logger.Error("Failed to record run outcome", "err", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("Wrote edition",
		"edition", opts.edition,
		"articles", len(result.Articles),
		"entities", len(result.Entities),
		"categories", len(result.Categories),
	)
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}

	return nil
}

// recordFeedPage records the edition as the single page of its run. A ledger
// failure is reported as a write error.
func recordFeedPage(store *ledger.Store, runID uuid.UUID, result page.Result) error {
	rec := ledger.PageRecord{
		RunID:         runID,
		Page:          1,
		RequestedPage: 1,
		StatusCode:    int(page.StatusLast),
		Articles:      len(result.Articles),
		Entities:      len(result.Entities),
		Categories:    len(result.Categories),
		EmittedAt:     time.Now(),
	}
	if err := store.RecordPage(rec); err != nil {
		return &output.WriteError{Path: "ledger", Err: err}
	}
	return nil
}

func harvestFeed(
	cmd *cobra.Command,
	url, userAgent string,
	timeout time.Duration,
	writer *output.Writer,
	q newsbrief.Query,
	language string,
) ([]string, page.Result, error) {
	feed, err := newsbrief.FetchEdition(cmd.Context(), url, userAgent, timeout)
	if err != nil {
		return nil, page.Result{}, err
	}

	result := newsbrief.EditionToResult(feed, language)
	paths, err := writer.WritePage(output.Partition{
		Language:  q.Language,
		DateLabel: q.DateLabel(),
		Label:     "feed",
	}, result)
	return paths, result, err
}
