package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/pkg/formatter"
)

// Source fetches the raw rows of one function. Non-fatal failures go to
// sink.Warn; a returned error fails the whole function.
type Source interface {
	Mode() string
	Fetch(ctx context.Context, function string, sink models.Sink) error
}

// Writer stores an assembled table and reports where it went
type Writer interface {
	Write(function, suffix string, t *formatter.Table) (string, int64, error)
}

// Publisher copies a written file elsewhere, e.g. S3
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// Extractor runs a Source over a list of functions, one at a time
type Extractor struct {
	source    Source
	writer    Writer
	publisher Publisher
	progress  bool
}

// NewExtractor creates an Extractor writing through writer
func NewExtractor(source Source, writer Writer) *Extractor {
	return &Extractor{
		source: source,
		writer: writer,
	}
}

// SetPublisher sets where written files are copied after each write
func (e *Extractor) SetPublisher(p Publisher) {
	e.publisher = p
}

// SetProgress turns the terminal spinner on or off
func (e *Extractor) SetProgress(enabled bool) {
	e.progress = enabled
}

// Run extracts every function in order. A failing function never stops
// the run; its result carries the error.
func (e *Extractor) Run(ctx context.Context, functions []string) []models.FunctionResult {
	results := make([]models.FunctionResult, 0, len(functions))
	total := len(functions)

	var sp *spinner.Spinner
	if e.progress && total > 0 {
		sp = spinner.New(spinner.CharSets[9], 100*time.Millisecond)
		sp.Suffix = fmt.Sprintf(" Progress: 0/%d functions", total)
		sp.Start()
		defer sp.Stop()
	}

	for i, function := range functions {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warnf("Run interrupted, %d of %d functions not processed", total-i, total)
			break
		}

		if sp != nil {
			sp.Lock()
			sp.Suffix = fmt.Sprintf(" [%d/%d] Extracting %s (%s)", i+1, total, function, e.source.Mode())
			sp.Unlock()
		}

		results = append(results, e.extract(ctx, function))
	}

	if sp != nil {
		sp.FinalMSG = fmt.Sprintf("✓ Completed extraction of %d Lambda functions\n", len(results))
	}

	return results
}

// extract runs the pipeline for one function
func (e *Extractor) extract(ctx context.Context, function string) (result models.FunctionResult) {
	mode := e.source.Mode()
	result = models.FunctionResult{Function: function, Mode: mode}
	logger := log.WithFields(log.Fields{"function": function, "mode": mode})

	fail := func(err error) models.FunctionResult {
		failure := &models.FunctionFailure{Function: function, Err: err}
		logger.WithError(err).Error("Skipping function")
		result.Status = models.StatusFailed
		result.Err = failure
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	collector := NewCollector(function)
	err := e.source.Fetch(ctx, function, collector)
	result.Warnings = collector.Warnings()
	if err != nil {
		return fail(err)
	}

	table, err := formatter.Assemble(collector.Rows())
	if errors.Is(err, models.ErrNoData) {
		logger.Info("No records found, nothing written")
		result.Status = models.StatusNoData
		return result
	}
	if err != nil {
		return fail(err)
	}

	suffix, ok := models.ModeSuffixes[mode]
	if !ok {
		return fail(fmt.Errorf("unknown mode %q", mode))
	}

	path, size, err := e.writer.Write(function, suffix, table)
	if err != nil {
		return fail(err)
	}
	result.Status = models.StatusWritten
	result.Records = table.Len()
	result.Path = path
	result.Bytes = size
	logger.WithFields(log.Fields{"records": result.Records, "path": path}).Info("Wrote records")

	if e.publisher != nil {
		uri, err := e.publisher.Publish(ctx, path)
		if err != nil {
			// The local file stays valid; the copy is reported separately
			logger.WithError(err).Warn("Upload failed")
			result.Err = err
			return result
		}
		result.S3URI = uri
		logger.WithField("uri", uri).Info("Uploaded")
	}

	return result
}
