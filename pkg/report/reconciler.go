package report

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/younsl/lamstat/internal/models"
)

// Reconciler builds ReportRecords from raw log events
type Reconciler struct {
	parser *Parser
}

// NewReconciler creates a Reconciler backed by parser
func NewReconciler(parser *Parser) *Reconciler {
	if parser == nil {
		parser = NewParser(StrategySegments)
	}
	return &Reconciler{parser: parser}
}

// Reconcile turns event into a record for function. It returns (nil, nil)
// for lines that are not REPORT lines, and a *models.RecordFailure when the
// line is a REPORT line without a RequestId.
func (r *Reconciler) Reconcile(function string, event models.LogEvent) (*models.ReportRecord, error) {
	result, ok := r.parser.Parse(event.Message)
	if !ok {
		return nil, nil
	}

	requestID, found := RequestID(event.Message)
	if !found {
		return nil, &models.RecordFailure{
			Function: function,
			Stream:   event.StreamName,
			Line:     event.Message,
			Err:      models.ErrMissingRequestID,
		}
	}

	for _, failure := range result.Failures {
		log.WithFields(log.Fields{
			"function": function,
			"stream":   event.StreamName,
			"line":     event.Message,
		}).Debug(failure.Error())
	}

	return &models.ReportRecord{
		FunctionName: function,
		RequestID:    requestID,
		Timestamp:    time.UnixMilli(event.Timestamp).UTC(),
		Metrics:      result.Values,
		Message:      strings.TrimRight(event.Message, "\r\n"),
	}, nil
}
