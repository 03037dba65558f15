// Package output writes extracted pages as gzip-compressed CSV tables, one
// file per record type, partitioned by language, date and page.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/pevans/newsbrief/page"
)

// Record types, used as file name prefixes.
const (
	KindArticles   = "articles"
	KindEntities   = "entities"
	KindCategories = "categories"
)

// Extension of every written table.
const Extension = ".csv.gz"

var (
	articleHeader  = []string{"is_duplicate", "url", "url_language", "title", "source_name", "source_country", "leadin", "leadin_language"}
	entityHeader   = []string{"url", "entity_id"}
	categoryHeader = []string{"url", "category_code"}
)

// WriteError describes a table that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Partition identifies where one page's tables go.
type Partition struct {
	Language  string
	DateLabel string
	Page      int
	// Label replaces the page number in file names when set.
	Label string
	// PastLast marks pages the portal reported as past the last page.
	PastLast bool
}

// FileName returns the file name of the table of the given kind.
func (p Partition) FileName(kind string) string {
	label := p.Label
	if label == "" {
		label = fmt.Sprintf("p%04d", p.Page)
	}
	name := fmt.Sprintf("%s_%s_%s_%s", kind, p.Language, p.DateLabel, label)
	if p.PastLast {
		name += "_pastlast"
	}
	return name + Extension
}

// Dir returns the partition directory below root.
func (p Partition) Dir(root string) string {
	return filepath.Join(root, p.Language, p.DateLabel)
}

// Writer writes tables below a root directory.
type Writer struct {
	root string
}

// NewWriter creates a writer, creating the root directory if needed.
func NewWriter(root string) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &WriteError{Path: root, Err: fmt.Errorf("failed to create output directory: %w", err)}
	}
	return &Writer{root: root}, nil
}

// Root returns the output root directory.
func (w *Writer) Root() string {
	return w.root
}

// WritePage writes the article, entity and category tables of one page and
// returns their paths. Empty tables are written with a header only.
func (w *Writer) WritePage(part Partition, res page.Result) ([]string, error) {
	dir := part.Dir(w.root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Path: dir, Err: fmt.Errorf("failed to create partition directory: %w", err)}
	}

	tables := []struct {
		kind   string
		header []string
		rows   [][]string
	}{
		{KindArticles, articleHeader, ArticleRows(res.Articles)},
		{KindEntities, entityHeader, EntityRows(res.Entities)},
		{KindCategories, categoryHeader, CategoryRows(res.Categories)},
	}

	paths := make([]string, 0, len(tables))
	for _, table := range tables {
		path := filepath.Join(dir, part.FileName(table.kind))
		if err := WriteTable(path, table.header, table.rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// WriteTable writes a gzip-compressed CSV file. The file is written under a
// temporary name and renamed into place once complete.
func WriteTable(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+Extension)
	if err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("failed to create file: %w", err)}
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}

	gz := gzip.NewWriter(tmp)
	cw := csv.NewWriter(gz)
	if err := cw.Write(header); err != nil {
		return fail(fmt.Errorf("failed to write header: %w", err))
	}
	if err := cw.WriteAll(rows); err != nil {
		return fail(fmt.Errorf("failed to write rows: %w", err))
	}
	if err := gz.Close(); err != nil {
		return fail(fmt.Errorf("failed to compress: %w", err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("failed to set permissions: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: fmt.Errorf("failed to close file: %w", err)}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: fmt.Errorf("failed to rename file: %w", err)}
	}

	return nil
}

// ArticleRows converts articles to CSV records. Nulls become empty cells.
func ArticleRows(articles []page.Article) [][]string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []string{
			strconv.FormatBool(a.IsDuplicate),
			deref(a.URL),
			deref(a.URLLanguage),
			deref(a.Title),
			deref(a.SourceName),
			deref(a.SourceCountry),
			deref(a.Leadin),
			deref(a.LeadinLanguage),
		})
	}
	return rows
}

// EntityRows converts entity tags to CSV records.
func EntityRows(tags []page.EntityTag) [][]string {
	rows := make([][]string, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, []string{tag.URL, strconv.FormatInt(tag.EntityID, 10)})
	}
	return rows
}

// CategoryRows converts category tags to CSV records.
func CategoryRows(tags []page.CategoryTag) [][]string {
	rows := make([][]string, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, []string{tag.URL, tag.CategoryCode})
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
