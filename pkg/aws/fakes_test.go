package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/younsl/lamstat/internal/models"
)

// recordingSink collects everything a source reports
type recordingSink struct {
	rows     []models.Row
	warnings []error
}

func (s *recordingSink) Add(row models.Row) { s.rows = append(s.rows, row) }
func (s *recordingSink) Warn(err error)     { s.warnings = append(s.warnings, err) }

// logPage is one scripted GetLogEvents/FilterLogEvents response
type logPage struct {
	events []types.OutputLogEvent
	next   *string
	err    error
}

type fakeLogs struct {
	mu sync.Mutex

	streams     []types.LogStream
	describeErr error
	pages       map[string][]logPage

	// recorded calls
	submitted    map[string][]*string
	filterInputs []*cloudwatchlogs.FilterLogEventsInput
	getInputs    []*cloudwatchlogs.GetLogEventsInput

	// called after each scripted page is served
	onPage func(stream string, n int)

	// Logs Insights
	startErr    error
	startInput  *cloudwatchlogs.StartQueryInput
	statuses    []types.QueryStatus
	results     [][]types.ResultField
	resultCalls int
	stopCalls   int
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{
		pages:     make(map[string][]logPage),
		submitted: make(map[string][]*string),
	}
}

func (f *fakeLogs) addStream(name string, lastEvent int64, pages ...logPage) {
	f.streams = append(f.streams, types.LogStream{
		LogStreamName:      aws.String(name),
		LastEventTimestamp: aws.Int64(lastEvent),
		StoredBytes:        aws.Int64(1024),
	})
	f.pages[name] = pages
}

func (f *fakeLogs) DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	// two streams per page to exercise the paginator
	start := 0
	if params.NextToken != nil {
		fmt.Sscanf(*params.NextToken, "streams-%d", &start)
	}
	end := start + 2
	if end > len(f.streams) {
		end = len(f.streams)
	}
	out := &cloudwatchlogs.DescribeLogStreamsOutput{LogStreams: f.streams[start:end]}
	if end < len(f.streams) {
		out.NextToken = aws.String(fmt.Sprintf("streams-%d", end))
	}
	return out, nil
}

func (f *fakeLogs) nextPage(stream string, token *string) (logPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted[stream] = append(f.submitted[stream], token)
	n := len(f.submitted[stream])
	pages := f.pages[stream]
	if n > len(pages) {
		return logPage{}, fmt.Errorf("unexpected call %d for stream %s", n, stream)
	}
	if f.onPage != nil {
		f.onPage(stream, n)
	}
	return pages[n-1], nil
}

func (f *fakeLogs) GetLogEvents(ctx context.Context, params *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error) {
	f.getInputs = append(f.getInputs, params)
	page, err := f.nextPage(aws.ToString(params.LogStreamName), params.NextToken)
	if err != nil {
		return nil, err
	}
	if page.err != nil {
		return nil, page.err
	}
	return &cloudwatchlogs.GetLogEventsOutput{
		Events:           page.events,
		NextForwardToken: page.next,
	}, nil
}

func (f *fakeLogs) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.filterInputs = append(f.filterInputs, params)
	page, err := f.nextPage(params.LogStreamNames[0], params.NextToken)
	if err != nil {
		return nil, err
	}
	if page.err != nil {
		return nil, page.err
	}

	out := &cloudwatchlogs.FilterLogEventsOutput{NextToken: page.next}
	for _, e := range page.events {
		out.Events = append(out.Events, types.FilteredLogEvent{
			Timestamp:     e.Timestamp,
			Message:       e.Message,
			LogStreamName: aws.String(params.LogStreamNames[0]),
		})
	}
	return out, nil
}

func (f *fakeLogs) StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error) {
	f.startInput = params
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("query-1")}, nil
}

func (f *fakeLogs) GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	status := types.QueryStatusRunning
	if f.resultCalls < len(f.statuses) {
		status = f.statuses[f.resultCalls]
	}
	f.resultCalls++

	out := &cloudwatchlogs.GetQueryResultsOutput{Status: status}
	if status == types.QueryStatusComplete {
		out.Results = f.results
	}
	return out, nil
}

func (f *fakeLogs) StopQuery(ctx context.Context, params *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error) {
	f.stopCalls++
	return &cloudwatchlogs.StopQueryOutput{Success: true}, nil
}

func reportEvent(ts int64, requestID string, duration float64) types.OutputLogEvent {
	return types.OutputLogEvent{
		Timestamp: aws.Int64(ts),
		Message: aws.String(fmt.Sprintf("REPORT RequestId: %s\tDuration: %.2f ms\tBilled Duration: %.f ms\tMemory Size: 128 MB\tMax Memory Used: 45 MB\t\n",
			requestID, duration, duration+1)),
	}
}

func textEvent(ts int64, msg string) types.OutputLogEvent {
	return types.OutputLogEvent{Timestamp: aws.Int64(ts), Message: aws.String(msg)}
}

// fakeMetrics scripts CloudWatch metric responses
type fakeMetrics struct {
	statistics map[string]*cloudwatch.GetMetricStatisticsOutput
	failing    map[string]error
	statErrAt  int // 1-based GetMetricStatistics call that fails, 0 for none
	statInputs []*cloudwatch.GetMetricStatisticsInput

	dataPages  []*cloudwatch.GetMetricDataOutput
	dataErrAt  int // 1-based page that fails, 0 for none
	dataInputs []*cloudwatch.GetMetricDataInput
}

func (f *fakeMetrics) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.statInputs = append(f.statInputs, params)
	if len(f.statInputs) == f.statErrAt {
		return nil, fmt.Errorf("call %d unavailable", f.statErrAt)
	}
	name := aws.ToString(params.MetricName)
	if err := f.failing[name]; err != nil {
		return nil, err
	}
	if out, ok := f.statistics[name]; ok {
		return out, nil
	}
	return &cloudwatch.GetMetricStatisticsOutput{}, nil
}

func (f *fakeMetrics) GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error) {
	f.dataInputs = append(f.dataInputs, params)
	n := len(f.dataInputs)
	if n == f.dataErrAt {
		return nil, fmt.Errorf("page %d unavailable", n)
	}
	if n > len(f.dataPages) {
		return &cloudwatch.GetMetricDataOutput{}, nil
	}
	return f.dataPages[n-1], nil
}
