package models

import "time"

// MetricDatapoint holds one CloudWatch statistics datapoint for a function
type MetricDatapoint struct {
	FunctionName string
	MetricName   string
	Unit         string
	Timestamp    time.Time
	Average      *float64
	Maximum      *float64
	Minimum      *float64
	Sum          *float64
	SampleCount  *float64
}

// When returns the datapoint timestamp
func (d MetricDatapoint) When() time.Time {
	return d.Timestamp
}

// Cells returns the datapoint columns; missing statistics are nil
func (d MetricDatapoint) Cells() []Cell {
	return []Cell{
		{Column: ColumnTimestamp, Value: d.Timestamp},
		{Column: ColumnFunctionName, Value: d.FunctionName},
		{Column: "metric", Value: d.MetricName},
		{Column: "average", Value: floatOrNil(d.Average)},
		{Column: "maximum", Value: floatOrNil(d.Maximum)},
		{Column: "minimum", Value: floatOrNil(d.Minimum)},
		{Column: "sum", Value: floatOrNil(d.Sum)},
		{Column: "sampleCount", Value: floatOrNil(d.SampleCount)},
		{Column: "unit", Value: d.Unit},
	}
}

// SeriesPoint is a single (timestamp, value) pair of a named metric series
type SeriesPoint struct {
	FunctionName string
	Series       string
	Timestamp    time.Time
	Value        float64
}

// When returns the point timestamp
func (p SeriesPoint) When() time.Time {
	return p.Timestamp
}

// Cells returns the series point columns
func (p SeriesPoint) Cells() []Cell {
	return []Cell{
		{Column: ColumnTimestamp, Value: p.Timestamp},
		{Column: ColumnFunctionName, Value: p.FunctionName},
		{Column: "series", Value: p.Series},
		{Column: "value", Value: p.Value},
	}
}

// QueryRow is one row returned by a CloudWatch Logs Insights query.
// Field values stay textual; the table assembler coerces numeric columns.
type QueryRow struct {
	FunctionName string
	Timestamp    time.Time
	RequestID    string
	Fields       map[string]string // keyed by metric name, e.g. "duration"
}

// When returns the row timestamp
func (q QueryRow) When() time.Time {
	return q.Timestamp
}

// Cells returns the query row columns in report column order
func (q QueryRow) Cells() []Cell {
	cells := []Cell{
		{Column: ColumnTimestamp, Value: q.Timestamp},
		{Column: ColumnFunctionName, Value: q.FunctionName},
		{Column: ColumnRequestID, Value: q.RequestID},
	}
	for _, name := range ReportMetrics {
		var v interface{}
		if value, ok := q.Fields[name]; ok && value != "" {
			v = value
		}
		cells = append(cells, Cell{Column: name, Value: v})
	}
	return cells
}

func floatOrNil(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
