package scraper

// PageConfig defines where each field lives in a NewsBrief search results
// page. Selectors are goquery/cascadia CSS selectors evaluated relative to
// the element noted in the field comment.
type PageConfig struct {
	// Document-level
	ArticleSelector     string `yaml:"article_selector" json:"article_selector"`
	CurrentPageSelector string `yaml:"current_page_selector" json:"current_page_selector"`
	StatusSelector      string `yaml:"status_selector" json:"status_selector"`
	PaginationAttr      string `yaml:"pagination_attr" json:"pagination_attr"`

	// Article block
	DuplicateClass   string `yaml:"duplicate_class" json:"duplicate_class"`
	HeadlineSelector string `yaml:"headline_selector" json:"headline_selector"`
	SourceSelector   string `yaml:"source_selector" json:"source_selector"`
	FlagSelector     string `yaml:"flag_selector" json:"flag_selector"`
	LeadinSelector   string `yaml:"leadin_selector" json:"leadin_selector"`
	MoreInfoSelector string `yaml:"more_info_selector" json:"more_info_selector"`

	// More info sub-element
	ParagraphSelector string `yaml:"paragraph_selector" json:"paragraph_selector"`
	EntityLabel       string `yaml:"entity_label" json:"entity_label"`
	CategoryLabel     string `yaml:"category_label" json:"category_label"`

	// Regular expressions with exactly one capture group
	FlagPattern     string `yaml:"flag_pattern" json:"flag_pattern"`
	EntityPattern   string `yaml:"entity_pattern" json:"entity_pattern"`
	CategoryPattern string `yaml:"category_pattern" json:"category_pattern"`
}

// DefaultPageConfig returns the selectors matching the live NewsBrief
// search page markup.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		ArticleSelector:     "div.center_results > div.articlebox_big",
		CurrentPageSelector: "input#currentPage",
		StatusSelector:      "input#status",
		PaginationAttr:      "value",

		DuplicateClass:   "duplicate",
		HeadlineSelector: "a.headline_link",
		SourceSelector:   "a.source_link",
		FlagSelector:     "img.source_flag",
		LeadinSelector:   "div.center_leadin",
		MoreInfoSelector: "div.more_info",

		ParagraphSelector: "p",
		EntityLabel:       "Entities:",
		CategoryLabel:     "Categories:",

		FlagPattern:     `(?i)/flags/(?:[a-z]+/)?([a-z]{2,3})\.(?:gif|png)$`,
		EntityPattern:   `^/NewsBrief/entityedition/[^/]+/(\d+)\.html$`,
		CategoryPattern: `^/NewsBrief/alertedition/[^/]+/([^/]+)\.html$`,
	}
}

// Merge returns a copy of c with every non-empty field of override applied.
func (c PageConfig) Merge(override PageConfig) PageConfig {
	merged := c
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&merged.ArticleSelector, override.ArticleSelector)
	set(&merged.CurrentPageSelector, override.CurrentPageSelector)
	set(&merged.StatusSelector, override.StatusSelector)
	set(&merged.PaginationAttr, override.PaginationAttr)
	set(&merged.DuplicateClass, override.DuplicateClass)
	set(&merged.HeadlineSelector, override.HeadlineSelector)
	set(&merged.SourceSelector, override.SourceSelector)
	set(&merged.FlagSelector, override.FlagSelector)
	set(&merged.LeadinSelector, override.LeadinSelector)
	set(&merged.MoreInfoSelector, override.MoreInfoSelector)
	set(&merged.ParagraphSelector, override.ParagraphSelector)
	set(&merged.EntityLabel, override.EntityLabel)
	set(&merged.CategoryLabel, override.CategoryLabel)
	set(&merged.FlagPattern, override.FlagPattern)
	set(&merged.EntityPattern, override.EntityPattern)
	set(&merged.CategoryPattern, override.CategoryPattern)

	return merged
}
