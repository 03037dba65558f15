// Package extract turns a NewsBrief search results page into article,
// entity and category rows, and reads the page's pagination fields.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/charmbracelet/log"
	"github.com/pevans/newsbrief/page"
	"github.com/pevans/newsbrief/scraper"
)

// Extractor pulls records out of search results pages. It holds no state
// between calls, so extracting the same page twice gives the same result.
type Extractor struct {
	config     scraper.PageConfig
	flagRe     *regexp.Regexp
	entityRe   *regexp.Regexp
	categoryRe *regexp.Regexp
	logger     *log.Logger
}

// New validates the page configuration and builds an Extractor from it.
func New(config scraper.PageConfig, logger *log.Logger) (*Extractor, error) {
	if logger == nil {
		logger = log.Default()
	}

	selectors := map[string]string{
		"article_selector":      config.ArticleSelector,
		"current_page_selector": config.CurrentPageSelector,
		"status_selector":       config.StatusSelector,
		"headline_selector":     config.HeadlineSelector,
		"source_selector":       config.SourceSelector,
		"flag_selector":         config.FlagSelector,
		"leadin_selector":       config.LeadinSelector,
		"more_info_selector":    config.MoreInfoSelector,
		"paragraph_selector":    config.ParagraphSelector,
	}
	for name, sel := range selectors {
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, sel, err)
		}
	}

	e := &Extractor{config: config, logger: logger}

	patterns := []struct {
		name string
		expr string
		dst  **regexp.Regexp
	}{
		{"flag_pattern", config.FlagPattern, &e.flagRe},
		{"entity_pattern", config.EntityPattern, &e.entityRe},
		{"category_pattern", config.CategoryPattern, &e.categoryRe},
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p.expr)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", p.name, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("%s must have exactly one capture group, has %d", p.name, re.NumSubexp())
		}
		*p.dst = re
	}

	return e, nil
}

// ExtractDocument is Extract applied to a goquery document.
func (e *Extractor) ExtractDocument(doc *goquery.Document) page.Result {
	return e.Extract(FromDocument(doc))
}

// Extract derives the articles, entity tags and category tags of a page. A
// page without article blocks yields an empty result, not an error. A block
// whose markup does not match contributes a row of nulls rather than being
// dropped.
func (e *Extractor) Extract(root Node) page.Result {
	result := page.Result{
		Articles:   []page.Article{},
		Entities:   []page.EntityTag{},
		Categories: []page.CategoryTag{},
	}

	for i, block := range root.SelectAll(e.config.ArticleSelector) {
		article, entities, categories := e.extractBlock(i, block)
		result.Articles = append(result.Articles, article)
		result.Entities = append(result.Entities, entities...)
		result.Categories = append(result.Categories, categories...)
	}

	return result
}

// extractBlock extracts one article block. A fault inside the block is
// contained here so sibling blocks are still extracted.
func (e *Extractor) extractBlock(index int, block Node) (article page.Article, entities []page.EntityTag, categories []page.CategoryTag) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Article block extraction failed", "block", index, "panic", r)
			article = page.Article{}
			entities = nil
			categories = nil
		}
	}()

	b := from(block)
	headline := b.find(e.config.HeadlineSelector)
	leadin := b.find(e.config.LeadinSelector)

	article = page.Article{
		IsDuplicate:    e.config.DuplicateClass != "" && block.HasClass(e.config.DuplicateClass),
		URL:            headline.attr("href"),
		URLLanguage:    headline.attr("lang"),
		Title:          headline.text(),
		SourceName:     b.find(e.config.SourceSelector).text(),
		SourceCountry:  e.sourceCountry(b.find(e.config.FlagSelector).attr("src")),
		Leadin:         leadin.text(),
		LeadinLanguage: leadin.attr("lang"),
	}

	// Tags are keyed by URL, so a block without one has nothing to relate
	// them to.
	if article.URL == nil {
		return article, nil, nil
	}

	moreInfo, ok := block.SelectOne(e.config.MoreInfoSelector)
	if !ok {
		return article, nil, nil
	}

	articleURL := *article.URL
	for _, href := range e.labelledLinks(moreInfo, e.config.EntityLabel) {
		if id, ok := e.ParseEntityID(href); ok {
			entities = append(entities, page.EntityTag{URL: articleURL, EntityID: id})
		}
	}
	for _, href := range e.labelledLinks(moreInfo, e.config.CategoryLabel) {
		if code, ok := e.ParseCategoryCode(href); ok {
			categories = append(categories, page.CategoryTag{URL: articleURL, CategoryCode: code})
		}
	}

	return article, entities, categories
}

// labelledLinks returns the hrefs of every link inside the first paragraph
// whose text starts with label.
func (e *Extractor) labelledLinks(moreInfo Node, label string) []string {
	for _, p := range moreInfo.SelectAll(e.config.ParagraphSelector) {
		text, ok := p.Text()
		if !ok || !strings.HasPrefix(text, label) {
			continue
		}

		var hrefs []string
		for _, a := range p.SelectAll("a[href]") {
			if href, ok := a.Attr("href"); ok {
				hrefs = append(hrefs, href)
			}
		}
		return hrefs
	}
	return nil
}

func (e *Extractor) sourceCountry(src *string) *string {
	if src == nil {
		return nil
	}
	m := e.flagRe.FindStringSubmatch(*src)
	if m == nil {
		return nil
	}
	code := strings.ToUpper(m[1])
	return &code
}

// ParseEntityID returns the numeric id in an entity link. Links that do not
// match the entity path template, or whose id does not fit in an int64,
// report false.
func (e *Extractor) ParseEntityID(href string) (int64, bool) {
	segment, ok := matchPath(e.entityRe, href)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		e.logger.Debug("Unparsable entity id", "href", href, "err", err)
		return 0, false
	}
	return id, true
}

// ParseCategoryCode returns the category code in a category link, exactly
// as it appears in the path.
func (e *Extractor) ParseCategoryCode(href string) (string, bool) {
	return matchPath(e.categoryRe, href)
}

// matchPath matches re against the path of href, which may be absolute or
// relative.
func matchPath(re *regexp.Regexp, href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(u.Path)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
