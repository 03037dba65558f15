// Package page holds the records derived from one NewsBrief search results
// page: articles, entity tags, category tags, and the pagination state the
// page reports about itself.
package page

import "math"

// Status is the page-state signal embedded in every search results page.
// The portal does not document these values; the meanings below are inferred
// from observed behaviour.
type Status int

const (
	// StatusNoResults means the query matched nothing.
	StatusNoResults Status = 0
	// StatusMore means more pages remain after this one.
	StatusMore Status = -1
	// StatusLast means this is the last page.
	StatusLast Status = -2
	// StatusPastLast means the requested page is past the last page. Its
	// content should not be trusted.
	StatusPastLast Status = -3
	// StatusUnknown stands in for a status field that could not be read.
	StatusUnknown Status = math.MinInt32
)

// String returns a short label for the status.
func (s Status) String() string {
	switch s {
	case StatusNoResults:
		return "no_results"
	case StatusMore:
		return "more"
	case StatusLast:
		return "last"
	case StatusPastLast:
		return "past_last"
	default:
		return "unknown"
	}
}

// Article is the row derived from one article block. Nil pointers are
// values that could not be found in the block.
type Article struct {
	IsDuplicate    bool    `json:"is_duplicate"`
	URL            *string `json:"url,omitempty"`
	URLLanguage    *string `json:"url_language,omitempty"`
	Title          *string `json:"title,omitempty"`
	SourceName     *string `json:"source_name,omitempty"`
	SourceCountry  *string `json:"source_country,omitempty"`
	Leadin         *string `json:"leadin,omitempty"`
	LeadinLanguage *string `json:"leadin_language,omitempty"`
}

// EntityTag links an article to a named entity.
type EntityTag struct {
	URL      string `json:"url"`
	EntityID int64  `json:"entity_id"`
}

// CategoryTag links an article to a topic category.
type CategoryTag struct {
	URL          string `json:"url"`
	CategoryCode string `json:"category_code"`
}

// Result is everything extracted from one page. The URL of every tag row
// matches the URL of an article row in the same Result; URLs are not unique
// across a crawl.
type Result struct {
	Articles   []Article
	Entities   []EntityTag
	Categories []CategoryTag
}

// Empty reports whether the result holds no rows at all.
func (r Result) Empty() bool {
	return len(r.Articles) == 0 && len(r.Entities) == 0 && len(r.Categories) == 0
}

// State is the pagination state read from a fetched page.
type State struct {
	CurrentPage int
	Status      Status
}
