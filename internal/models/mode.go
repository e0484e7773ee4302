package models

// Extraction modes
const (
	ModeLogs     = "logs"     // walk log streams and parse REPORT lines
	ModeInsights = "insights" // CloudWatch Logs Insights query
	ModeMetrics  = "metrics"  // CloudWatch GetMetricStatistics
	ModeSeries   = "series"   // CloudWatch GetMetricData
)

// ModeSuffixes maps each mode to the output file name suffix
var ModeSuffixes = map[string]string{
	ModeLogs:     "_logs",
	ModeInsights: "_events",
	ModeMetrics:  "_metrics",
	ModeSeries:   "_metrics",
}

// ModeDescriptions is used for the --list-modes help text
var ModeDescriptions = map[string]string{
	ModeLogs:     "Walk every log stream and parse REPORT lines",
	ModeInsights: "Run a Logs Insights query over REPORT events (max 10,000 rows)",
	ModeMetrics:  "Fetch AWS/Lambda statistics (avg/max/min/sum) per period",
	ModeSeries:   "Fetch AWS/Lambda metric time series via GetMetricData",
}
