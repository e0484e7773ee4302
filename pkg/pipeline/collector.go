package pipeline

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/younsl/lamstat/internal/models"
)

// Collector accumulates the rows of one function. Rows are kept in arrival
// order and never deduplicated.
type Collector struct {
	function string
	rows     []models.Row
	warnings int
}

// NewCollector creates an empty Collector for function
func NewCollector(function string) *Collector {
	return &Collector{function: function}
}

// Add appends row
func (c *Collector) Add(row models.Row) {
	c.rows = append(c.rows, row)
}

// Warn logs a non-fatal failure and counts it
func (c *Collector) Warn(err error) {
	c.warnings++

	fields := log.Fields{"function": c.function}

	var pageErr *models.PageFailure
	var recordErr *models.RecordFailure
	switch {
	case errors.As(err, &pageErr):
		fields["stream"] = pageErr.Stream
		fields["page"] = pageErr.Page
		if pageErr.Code != "" {
			fields["error_code"] = pageErr.Code
		}
		log.WithFields(fields).WithError(pageErr.Err).Warn("Page fetch failed, stream truncated")
	case errors.As(err, &recordErr):
		if recordErr.Stream != "" {
			fields["stream"] = recordErr.Stream
		}
		fields["line"] = recordErr.Line
		log.WithFields(fields).WithError(recordErr.Err).Warn("Discarding event")
	default:
		log.WithFields(fields).WithError(err).Warn("Extraction warning")
	}
}

// Rows returns the collected rows
func (c *Collector) Rows() []models.Row {
	return c.rows
}

// Len returns the number of collected rows
func (c *Collector) Len() int {
	return len(c.rows)
}

// Warnings returns how many failures were reported
func (c *Collector) Warnings() int {
	return c.warnings
}
