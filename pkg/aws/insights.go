package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/pkg/utils"
)

const (
	// MaxQueryLimit is the largest row count a Logs Insights query returns
	MaxQueryLimit = 10000

	DefaultPollInterval = 2 * time.Second
	DefaultMaxPolls     = 300

	// Logs Insights prints @timestamp in this layout, UTC
	insightsTimestampLayout = "2006-01-02 15:04:05.000"
)

// reportQuery selects the discovered REPORT fields of a Lambda log group
const reportQuery = `fields @timestamp, @requestId, @duration, @billedDuration, @memorySize, @maxMemoryUsed, @initDuration
| filter @type = "REPORT"
| sort @timestamp asc`

// insightsFields maps Logs Insights field names to metric keys
var insightsFields = map[string]string{
	"@duration":       models.MetricDuration,
	"@billedDuration": models.MetricBilledDuration,
	"@memorySize":     models.MetricMemorySize,
	"@maxMemoryUsed":  models.MetricMaxMemoryUsed,
	"@initDuration":   models.MetricInitDuration,
}

// InsightsOptions configures an InsightsSource
type InsightsOptions struct {
	Window       utils.Window
	Limit        int32         // rows, capped at MaxQueryLimit
	PollInterval time.Duration // wait between GetQueryResults calls
	MaxPolls     int           // GetQueryResults calls before giving up
}

// InsightsSource runs a Logs Insights query per function and collects the
// returned rows
type InsightsSource struct {
	client LogsAPI
	opts   InsightsOptions
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewInsightsSource creates an InsightsSource, applying defaults to opts
func NewInsightsSource(client LogsAPI, opts InsightsOptions) *InsightsSource {
	if opts.Limit <= 0 || opts.Limit > MaxQueryLimit {
		opts.Limit = MaxQueryLimit
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	return &InsightsSource{
		client: client,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// Mode returns the extraction mode name
func (s *InsightsSource) Mode() string {
	return models.ModeInsights
}

// Fetch submits the query for function's log group, waits for it to finish
// and adds every valid row to sink
func (s *InsightsSource) Fetch(ctx context.Context, function string, sink models.Sink) error {
	logGroupName := models.LogGroupName(function)

	// The whole window goes into one request, however many years it spans
	var start int64
	if !s.opts.Window.Unbounded() {
		start = s.opts.Window.Start.Unix()
	}

	started, err := s.client.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(logGroupName),
		QueryString:  aws.String(reportQuery),
		StartTime:    aws.Int64(start),
		EndTime:      aws.Int64(s.opts.Window.End.Unix()),
		Limit:        aws.Int32(s.opts.Limit),
	})
	if err != nil {
		return fmt.Errorf("error starting query on %s: %w", logGroupName, err)
	}
	queryID := aws.ToString(started.QueryId)

	results, err := s.waitForResults(ctx, queryID)
	if err != nil {
		return fmt.Errorf("query %s on %s: %w", queryID, logGroupName, err)
	}

	for _, fields := range results.Results {
		row, err := queryRow(function, fields)
		if err != nil {
			sink.Warn(err)
			continue
		}
		sink.Add(row)
	}

	if len(results.Results) >= int(s.opts.Limit) {
		log.WithFields(log.Fields{
			"function": function,
			"limit":    s.opts.Limit,
		}).Warn("Query result cap reached, later rows were not fetched; narrow the window to get them")
	}

	return nil
}

// waitForResults polls GetQueryResults until the query leaves the
// Scheduled/Running states. Polling stops after MaxPolls calls; the query
// is then cancelled.
func (s *InsightsSource) waitForResults(ctx context.Context, queryID string) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	for poll := 1; poll <= s.opts.MaxPolls; poll++ {
		output, err := s.client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: aws.String(queryID),
		})
		if err != nil {
			return nil, fmt.Errorf("error getting query results: %w", err)
		}

		switch output.Status {
		case types.QueryStatusComplete:
			return output, nil
		case types.QueryStatusScheduled, types.QueryStatusRunning:
			if poll < s.opts.MaxPolls {
				if err := s.sleep(ctx, s.opts.PollInterval); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("query ended with status %s", output.Status)
		}
	}

	// Best effort; the poll limit error is what matters to the caller
	_, _ = s.client.StopQuery(ctx, &cloudwatchlogs.StopQueryInput{QueryId: aws.String(queryID)})

	return nil, fmt.Errorf("%w (%d polls, %s apart)", models.ErrQueryPollExhausted, s.opts.MaxPolls, s.opts.PollInterval)
}

// queryRow converts one result row. Rows without a timestamp or request id
// are RecordFailures.
func queryRow(function string, fields []types.ResultField) (models.Row, error) {
	row := models.QueryRow{
		FunctionName: function,
		Fields:       make(map[string]string),
	}

	var rawTimestamp string
	var line []string
	for _, f := range fields {
		name, value := aws.ToString(f.Field), strings.TrimSpace(aws.ToString(f.Value))
		if name == "@ptr" {
			continue
		}
		line = append(line, name+"="+value)

		switch name {
		case "@timestamp":
			rawTimestamp = value
		case "@requestId":
			row.RequestID = value
		default:
			if metric, ok := insightsFields[name]; ok {
				row.Fields[metric] = value
			}
		}
	}

	failure := func(err error) error {
		return &models.RecordFailure{Function: function, Line: strings.Join(line, " "), Err: err}
	}

	ts, err := time.Parse(insightsTimestampLayout, rawTimestamp)
	if err != nil {
		return nil, failure(fmt.Errorf("invalid @timestamp %q: %w", rawTimestamp, err))
	}
	row.Timestamp = ts.UTC()

	if row.RequestID == "" {
		return nil, failure(models.ErrMissingRequestID)
	}

	return row, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
