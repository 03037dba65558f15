package newsbrief

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
	"unicode"
)

// DateLayout is the date format used in query URLs and output paths.
const DateLayout = "2006-01-02"

// ErrInvalidQuery is returned by Query.Validate.
var ErrInvalidQuery = errors.New("invalid query")

// Query describes one NewsBrief article search.
type Query struct {
	DateFrom time.Time
	// DateTo defaults to DateFrom.
	DateTo time.Time
	// EntityLanguage filters entity and category labels. Defaults to "all".
	EntityLanguage string
	// Language is the article language. Defaults to "en".
	Language string
}

// NewQuery creates a single-day query in the given language.
func NewQuery(date time.Time, language string) Query {
	return Query{DateFrom: date, Language: language}.WithDefaults()
}

// WithDefaults fills unset optional fields.
func (q Query) WithDefaults() Query {
	if q.DateTo.IsZero() {
		q.DateTo = q.DateFrom
	}
	if q.EntityLanguage == "" {
		q.EntityLanguage = "all"
	}
	if q.Language == "" {
		q.Language = "en"
	}
	return q
}

// Validate checks the query after defaults are applied.
func (q Query) Validate() error {
	q = q.WithDefaults()

	if q.DateFrom.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidQuery)
	}
	if q.DateTo.Before(q.DateFrom) {
		return fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidQuery, q.DateTo.Format(DateLayout), q.DateFrom.Format(DateLayout))
	}
	if !isLanguageCode(q.Language) {
		return fmt.Errorf("%w: language %q", ErrInvalidQuery, q.Language)
	}
	if !isLanguageCode(q.EntityLanguage) {
		return fmt.Errorf("%w: entity language %q", ErrInvalidQuery, q.EntityLanguage)
	}

	return nil
}

// URL builds the address of one results page of the query.
func (q Query) URL(base string, pageNum int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}

	q = q.WithDefaults()
	params := u.Query()
	params.Set("language", q.Language)
	params.Set("page", strconv.Itoa(pageNum))
	params.Set("edition", "searcharticles")
	params.Set("option", "advanced")
	params.Set("dateFrom", q.DateFrom.Format(DateLayout))
	params.Set("dateTo", q.DateTo.Format(DateLayout))
	params.Set("lang", q.EntityLanguage)
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// DateLabel is the date, or the date range, used in output paths.
func (q Query) DateLabel() string {
	q = q.WithDefaults()
	from := q.DateFrom.Format(DateLayout)
	to := q.DateTo.Format(DateLayout)
	if from == to {
		return from
	}
	return from + "_" + to
}

func isLanguageCode(s string) bool {
	if s == "" || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
