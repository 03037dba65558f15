package newsbrief

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
	"github.com/pevans/newsbrief/page"
)

// EditionQuery selects one NewsBrief RSS edition.
type EditionQuery struct {
	// Type is the edition type, e.g. "rtn" for the latest news.
	Type     string
	Language string
	// Duplicates includes items flagged as duplicates when true.
	Duplicates bool
}

// URL builds the address of the edition feed.
func (q EditionQuery) URL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse RSS URL: %w", err)
	}

	params := u.Query()
	params.Set("type", q.Type)
	params.Set("language", q.Language)
	params.Set("duplicates", strconv.FormatBool(q.Duplicates))
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// FetchEdition fetches and parses an edition feed.
func FetchEdition(ctx context.Context, url, userAgent string, timeout time.Duration) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.RSSTranslator = &editionTranslator{}
	fp.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		fp.UserAgent = userAgent
	}

	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// editionTranslator keeps the RSS <source> element, which the default
// translator drops, in each item's Custom map.
type editionTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *editionTranslator) Translate(feed any) (*gofeed.Feed, error) {
	translated, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}

	rssFeed, ok := feed.(*rss.Feed)
	if !ok || len(rssFeed.Items) != len(translated.Items) {
		return translated, nil
	}
	for i, item := range rssFeed.Items {
		if item.Source == nil || strings.TrimSpace(item.Source.Title) == "" {
			continue
		}
		if translated.Items[i].Custom == nil {
			translated.Items[i].Custom = map[string]string{}
		}
		translated.Items[i].Custom["source"] = strings.TrimSpace(item.Source.Title)
	}

	return translated, nil
}

// EditionToResult converts edition items into the same rows a search page
// produces. Entities come from emm:entity elements and categories from RSS
// categories. language is used for items without an iso:language element.
func EditionToResult(feed *gofeed.Feed, language string) page.Result {
	result := page.Result{
		Articles:   []page.Article{},
		Entities:   []page.EntityTag{},
		Categories: []page.CategoryTag{},
	}

	for _, item := range feed.Items {
		article := page.Article{
			URL:            optional(item.Link),
			Title:          optional(item.Title),
			Leadin:         optional(item.Description),
			SourceName:     optional(item.Custom["source"]),
			URLLanguage:    optional(extensionValue(item, "iso", "language")),
			LeadinLanguage: optional(extensionValue(item, "iso", "language")),
		}
		if article.URLLanguage == nil {
			article.URLLanguage = optional(language)
			article.LeadinLanguage = optional(language)
		}
		result.Articles = append(result.Articles, article)

		if article.URL == nil {
			continue
		}
		for _, entity := range item.Extensions["emm"]["entity"] {
			id, err := strconv.ParseInt(strings.TrimSpace(entity.Attrs["id"]), 10, 64)
			if err != nil {
				continue
			}
			result.Entities = append(result.Entities, page.EntityTag{URL: *article.URL, EntityID: id})
		}
		for _, category := range item.Categories {
			if code := strings.TrimSpace(category); code != "" {
				result.Categories = append(result.Categories, page.CategoryTag{URL: *article.URL, CategoryCode: code})
			}
		}
	}

	return result
}

func extensionValue(item *gofeed.Item, namespace, name string) string {
	values := item.Extensions[namespace][name]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}

func optional(s string) *string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	return &s
}
