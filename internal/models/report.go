package models

import "time"

// Metric keys recognized in a Lambda REPORT line
const (
	MetricDuration       = "duration"       // ms
	MetricBilledDuration = "billedDuration" // ms
	MetricMemorySize     = "memorySize"     // MB
	MetricMaxMemoryUsed  = "maxMemoryUsed"  // MB
	MetricInitDuration   = "initDuration"   // ms, cold starts only
)

// ReportMetrics lists the metric keys in output column order
var ReportMetrics = []string{
	MetricDuration,
	MetricBilledDuration,
	MetricMemorySize,
	MetricMaxMemoryUsed,
	MetricInitDuration,
}

// Common output column names
const (
	ColumnTimestamp    = "timestamp"
	ColumnFunctionName = "functionName"
	ColumnRequestID    = "requestId"
	ColumnMessage      = "message"
)

// LogEvent is a single raw CloudWatch log event
type LogEvent struct {
	Timestamp  int64  // epoch milliseconds
	Message    string // free-text log line
	StreamName string // source log stream
}

// Cell is one named value of an output row. A nil Value means the column
// was not observed for that row.
type Cell struct {
	Column string
	Value  interface{}
}

// Row is a record the table assembler can lay out
type Row interface {
	When() time.Time
	Cells() []Cell
}

// Sink receives rows and non-fatal failures from a source
type Sink interface {
	Add(row Row)
	Warn(err error)
}

// ReportRecord is one normalized REPORT line
type ReportRecord struct {
	FunctionName string
	RequestID    string
	Timestamp    time.Time
	Metrics      map[string]float64 // absent key means not observed
	Message      string
}

// When returns the event time of the record
func (r ReportRecord) When() time.Time {
	return r.Timestamp
}

// Cells returns the full column set; unobserved metrics are nil
func (r ReportRecord) Cells() []Cell {
	cells := []Cell{
		{Column: ColumnTimestamp, Value: r.Timestamp},
		{Column: ColumnFunctionName, Value: r.FunctionName},
		{Column: ColumnRequestID, Value: r.RequestID},
	}
	for _, name := range ReportMetrics {
		var v interface{}
		if value, ok := r.Metrics[name]; ok {
			v = value
		}
		cells = append(cells, Cell{Column: name, Value: v})
	}
	return append(cells, Cell{Column: ColumnMessage, Value: r.Message})
}
