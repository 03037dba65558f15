package newsbrief

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/pevans/newsbrief/extract"
	"github.com/pevans/newsbrief/page"
)

// Fetcher retrieves a parsed HTML document. fetch.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Emission is one extracted page handed to a Sink.
type Emission struct {
	Query         Query
	RequestedPage int
	State         page.State
	Result        page.Result
}

// PastLast reports whether the portal flagged the page as past the last
// page.
func (e Emission) PastLast() bool {
	return e.State.Status == page.StatusPastLast
}

// Sink receives extracted pages in page order. An error from Emit aborts
// the crawl.
type Sink interface {
	Emit(ctx context.Context, e Emission) error
}

// Outcome is how a crawl ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeNoResults Outcome = "no_results"
	OutcomeFailed    Outcome = "failed"
)

// Summary describes a finished crawl.
type Summary struct {
	Outcome      Outcome
	PagesEmitted int
	LastStatus   page.Status
	Articles     int
	Entities     int
	Categories   int
}

// CrawlerConfig holds configuration for the pagination driver.
type CrawlerConfig struct {
	// Search endpoint; page parameters are appended by Query.URL
	BaseURL string
	// Pages are requested while the current page is at most MaxPages, so at
	// most MaxPages+1 pages are emitted
	MaxPages int
}

// DefaultCrawlerConfig returns the default configuration.
func DefaultCrawlerConfig() *CrawlerConfig {
	return &CrawlerConfig{
		BaseURL:  "https://emm.newsbrief.eu/NewsBrief/dynamic",
		MaxPages: 500,
	}
}

// Crawler walks the result pages of a query one at a time: fetch, extract,
// emit, then decide whether to continue.
type Crawler struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	sink      Sink
	config    *CrawlerConfig
	logger    *log.Logger
}

// NewCrawler creates a new crawler.
func NewCrawler(
	fetcher Fetcher,
	extractor *extract.Extractor,
	sink Sink,
	config *CrawlerConfig,
	logger *log.Logger,
) *Crawler {
	if config == nil {
		config = DefaultCrawlerConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Crawler{
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		config:    config,
		logger:    logger,
	}
}

// Run crawls every page of the query. A query without results ends with
// OutcomeNoResults and a nil error. Fetch and sink failures stop the crawl
// immediately; pages already emitted stay emitted.
func (c *Crawler) Run(ctx context.Context, q Query) (Summary, error) {
	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return Summary{Outcome: OutcomeFailed}, err
	}

	summary := Summary{Outcome: OutcomeFailed}
	logger := c.logger.With("date", q.DateLabel(), "language", q.Language)

	requested := 1
	doc, err := c.fetchPage(ctx, q, requested)
	if err != nil {
		return summary, err
	}

	state, known := c.readState(logger, doc, requested)
	summary.LastStatus = state.Status
	if known && state.Status == page.StatusNoResults {
		logger.Warn("No results for query")
		summary.Outcome = OutcomeNoResults
		return summary, nil
	}

	// The first page is emitted whatever its status; a past-last page is
	// flagged on the emission rather than dropped.
	if err := c.emit(ctx, logger, q, requested, state, doc, &summary); err != nil {
		return summary, err
	}

	for known && state.Status == page.StatusMore &&
		state.CurrentPage <= c.config.MaxPages && summary.PagesEmitted <= c.config.MaxPages {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		requested = state.CurrentPage + 1
		doc, err = c.fetchPage(ctx, q, requested)
		if err != nil {
			return summary, err
		}

		state, known = c.readState(logger, doc, requested)
		summary.LastStatus = state.Status
		if err := c.emit(ctx, logger, q, requested, state, doc, &summary); err != nil {
			return summary, err
		}
	}

	if known && state.Status == page.StatusMore {
		logger.Warn("Stopped at page bound with pages remaining",
			"page", state.CurrentPage, "max_pages", c.config.MaxPages)
	}

	summary.Outcome = OutcomeCompleted
	logger.Info("Crawl finished",
		"pages", summary.PagesEmitted,
		"articles", summary.Articles,
		"entities", summary.Entities,
		"categories", summary.Categories,
		"last_status", summary.LastStatus,
	)

	return summary, nil
}

func (c *Crawler) fetchPage(ctx context.Context, q Query, pageNum int) (*goquery.Document, error) {
	url, err := q.URL(c.config.BaseURL, pageNum)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetching page", "page", pageNum, "url", url)
	doc, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", pageNum, err)
	}
	return doc, nil
}

// readState reads the pagination fields of a page. An unreadable page
// number falls back to the requested one. The second return value is false
// when the status could not be read; the caller treats that as terminal.
func (c *Crawler) readState(logger *log.Logger, doc *goquery.Document, requested int) (page.State, bool) {
	root := extract.FromDocument(doc)
	state := page.State{CurrentPage: requested}

	current, err := c.extractor.CurrentPage(root)
	switch {
	case err != nil:
		logger.Warn("Unreadable current page, using requested page", "requested", requested, "err", err)
	case current != requested:
		logger.Warn("Portal served a different page than requested", "requested", requested, "served", current)
		state.CurrentPage = current
	default:
		state.CurrentPage = current
	}

	status, err := c.extractor.Status(root)
	if err != nil {
		logger.Warn("Unreadable page status, stopping after this page", "page", state.CurrentPage, "err", err)
		state.Status = page.StatusUnknown
		return state, false
	}
	state.Status = status

	return state, true
}

func (c *Crawler) emit(
	ctx context.Context,
	logger *log.Logger,
	q Query,
	requested int,
	state page.State,
	doc *goquery.Document,
	summary *Summary,
) error {
	result := c.extractor.ExtractDocument(doc)
	emission := Emission{
		Query:         q,
		RequestedPage: requested,
		State:         state,
		Result:        result,
	}

	if err := c.sink.Emit(ctx, emission); err != nil {
		return fmt.Errorf("failed to emit page %d: %w", state.CurrentPage, err)
	}

	summary.PagesEmitted++
	summary.Articles += len(result.Articles)
	summary.Entities += len(result.Entities)
	summary.Categories += len(result.Categories)

	logger.Info("Emitted page",
		"page", state.CurrentPage,
		"status", state.Status,
		"articles", len(result.Articles),
		"entities", len(result.Entities),
		"categories", len(result.Categories),
	)
	if emission.PastLast() {
		logger.Warn("Page is past the last page; output flagged", "page", state.CurrentPage)
	}

	return nil
}
