package extract

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pevans/newsbrief/page"
)

// ErrFieldMissing is returned when a pagination field is absent from the page.
var ErrFieldMissing = errors.New("pagination field missing")

// ParseError describes a pagination field whose value is not an integer.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CurrentPage reads the page number the portal says it served.
func (e *Extractor) CurrentPage(root Node) (int, error) {
	return e.intField(root, "currentPage", e.config.CurrentPageSelector)
}

// Status reads the page-state signal. On error the returned status is
// page.StatusUnknown, never a valid status code.
func (e *Extractor) Status(root Node) (page.Status, error) {
	v, err := e.intField(root, "status", e.config.StatusSelector)
	if err != nil {
		return page.StatusUnknown, err
	}
	return page.Status(v), nil
}

func (e *Extractor) intField(root Node, field, selector string) (int, error) {
	raw := from(root).find(selector).attr(e.config.PaginationAttr)
	if raw == nil {
		return 0, fmt.Errorf("%s: %w", field, ErrFieldMissing)
	}
	v, err := strconv.Atoi(*raw)
	if err != nil {
		return 0, &ParseError{Field: field, Value: *raw, Err: err}
	}
	return v, nil
}
