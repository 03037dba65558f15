package newsbrief

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/pevans/newsbrief/output"
)

// WriterSink writes each emitted page as three CSV tables.
type WriterSink struct {
	writer *output.Writer
	logger *log.Logger
}

// NewWriterSink creates a sink writing through w.
func NewWriterSink(w *output.Writer, logger *log.Logger) *WriterSink {
	if logger == nil {
		logger = log.Default()
	}
	return &WriterSink{writer: w, logger: logger}
}

// Emit writes the page's tables. Pages past the last page are written with
// a distinct file name suffix.
func (s *WriterSink) Emit(_ context.Context, e Emission) error {
	part := output.Partition{
		Language:  e.Query.Language,
		DateLabel: e.Query.DateLabel(),
		Page:      e.State.CurrentPage,
		PastLast:  e.PastLast(),
	}

	paths, err := s.writer.WritePage(part, e.Result)
	if err != nil {
		return err
	}

	s.logger.Debug("Wrote page tables", "page", part.Page, "files", paths)
	return nil
}
