package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pevans/newsbrief/ledger"
)

// printRunsTable prints runs as an aligned table
func printRunsTable(w io.Writer, runs []ledger.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tKIND\tSTARTED\tDATES\tLANG\tOUTCOME\tPAGES")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			run.RunID,
			run.Kind,
			run.StartedAt.Local().Format(time.DateTime),
			dateRange(run),
			run.Language,
			outcomeOf(run),
			run.PagesEmitted,
		)
	}
	return tw.Flush()
}

// printRunsCompact prints one line per run
func printRunsCompact(w io.Writer, runs []ledger.Run) {
	for _, run := range runs {
		shortID := run.RunID.String()[:8]
		fmt.Fprintf(w, "%s %s %s %s (%s)\n", shortID, run.Kind, dateRange(run), run.Language, outcomeOf(run))
	}
}

// printPagesTable prints the pages of one run
func printPagesTable(w io.Writer, run *ledger.Run, pages []ledger.PageRecord) error {
	fmt.Fprintf(w, "Run %s (%s %s, %s): %s\n", run.RunID, run.Kind, dateRange(*run), run.Language, outcomeOf(*run))
	if run.LastError != nil {
		fmt.Fprintf(w, "Error: %s\n", *run.LastError)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tREQUESTED\tSTATUS\tARTICLES\tENTITIES\tCATEGORIES")
	for _, p := range pages {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\n",
			p.Page, p.RequestedPage, p.StatusCode, p.Articles, p.Entities, p.Categories)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if n := ledger.PastLastPages(pages); n > 0 {
		fmt.Fprintf(w, "%d page(s) past the last page\n", n)
	}
	return nil
}

// printJSON prints v as indented JSON
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func dateRange(run ledger.Run) string {
	if run.DateTo == run.DateFrom {
		return run.DateFrom
	}
	return run.DateFrom + ".." + run.DateTo
}

func outcomeOf(run ledger.Run) string {
	if run.Outcome == nil {
		return "running"
	}
	return *run.Outcome
}
