package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/pkg/report"
	"github.com/younsl/lamstat/pkg/utils"
)

// LogsAPI is the part of the CloudWatch Logs client lamstat uses
type LogsAPI interface {
	cloudwatchlogs.DescribeLogStreamsAPIClient
	GetLogEvents(ctx context.Context, params *cloudwatchlogs.GetLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error)
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
	StopQuery(ctx context.Context, params *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error)
}

// NewLogsClient creates a CloudWatch Logs client from cfg
func NewLogsClient(cfg aws.Config) *cloudwatchlogs.Client {
	return cloudwatchlogs.NewFromConfig(cfg)
}

// LogStreamOptions configures a LogStreamSource
type LogStreamOptions struct {
	Window        utils.Window
	PageSize      int32  // events per page, 0 for the API default
	FilterPattern string // when set, FilterLogEvents is used per stream
}

// LogStreamSource walks every log stream of a function's log group and
// turns REPORT lines into records
type LogStreamSource struct {
	client     LogsAPI
	reconciler *report.Reconciler
	opts       LogStreamOptions
}

// NewLogStreamSource creates a LogStreamSource
func NewLogStreamSource(client LogsAPI, reconciler *report.Reconciler, opts LogStreamOptions) *LogStreamSource {
	if reconciler == nil {
		reconciler = report.NewReconciler(nil)
	}
	return &LogStreamSource{
		client:     client,
		reconciler: reconciler,
		opts:       opts,
	}
}

// Mode returns the extraction mode name
func (s *LogStreamSource) Mode() string {
	return models.ModeLogs
}

// Fetch collects the REPORT records of every stream of function into sink.
// A failed page truncates only its own stream.
func (s *LogStreamSource) Fetch(ctx context.Context, function string, sink models.Sink) error {
	logGroupName := models.LogGroupName(function)

	streams, err := s.listStreams(ctx, logGroupName)
	if err != nil {
		return err
	}

	var storedBytes int64
	for _, stream := range streams {
		storedBytes += stream.StoredBytes
	}
	log.WithFields(log.Fields{
		"function": function,
		"streams":  len(streams),
		"stored":   humanize.Bytes(uint64(storedBytes)),
	}).Debug("Listed log streams")

	for _, stream := range streams {
		// An interrupted walk fails the function so no partial table is written
		if err := ctx.Err(); err != nil {
			return err
		}

		// Streams are ordered by last event; older ones cannot hold events in the window
		if !s.opts.Window.Unbounded() && stream.LastEventMillis > 0 &&
			stream.LastEventMillis < s.opts.Window.Start.UnixMilli() {
			continue
		}

		handle := func(e models.LogEvent) {
			record, err := s.reconciler.Reconcile(function, e)
			if err != nil {
				sink.Warn(err)
				return
			}
			if record != nil {
				sink.Add(*record)
			}
		}

		var pageErr error
		if s.opts.FilterPattern != "" {
			_, pageErr = s.filterStream(ctx, function, stream.Name, handle)
		} else {
			_, pageErr = s.walkStream(ctx, function, stream.Name, handle)
		}
		if pageErr != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			sink.Warn(pageErr)
		}
	}

	return nil
}

// listStreams lists the log streams of a group, most recent event first
func (s *LogStreamSource) listStreams(ctx context.Context, logGroupName string) ([]models.LogStreamInfo, error) {
	var streams []models.LogStreamInfo

	paginator := cloudwatchlogs.NewDescribeLogStreamsPaginator(s.client, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String(logGroupName),
		OrderBy:      types.OrderByLastEventTime,
		Descending:   aws.Bool(true),
	})

	pageCount := 0
	for paginator.HasMorePages() {
		pageCount++
		output, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("log group %s not found: %w", logGroupName, err)
			}
			return nil, fmt.Errorf("error listing log streams page %d of %s: %w", pageCount, logGroupName, err)
		}

		for _, ls := range output.LogStreams {
			streams = append(streams, models.LogStreamInfo{
				Name:            aws.ToString(ls.LogStreamName),
				LastEventMillis: aws.ToInt64(ls.LastEventTimestamp),
				StoredBytes:     aws.ToInt64(ls.StoredBytes),
			})
		}
	}

	return streams, nil
}

// walkStream reads one stream from the head with GetLogEvents. The API
// hands back the submitted forward token once the stream is exhausted;
// that repetition is the only stop condition.
func (s *LogStreamSource) walkStream(ctx context.Context, function, streamName string, handle func(models.LogEvent)) (int, error) {
	logGroupName := models.LogGroupName(function)
	var token *string
	pages := 0

	for {
		input := &cloudwatchlogs.GetLogEventsInput{
			LogGroupName:  aws.String(logGroupName),
			LogStreamName: aws.String(streamName),
			StartFromHead: aws.Bool(true),
			NextToken:     token,
		}
		if s.opts.PageSize > 0 {
			input.Limit = aws.Int32(s.opts.PageSize)
		}
		if !s.opts.Window.Unbounded() {
			input.StartTime = aws.Int64(s.opts.Window.Start.UnixMilli())
			input.EndTime = aws.Int64(s.opts.Window.End.UnixMilli())
		}

		output, err := s.client.GetLogEvents(ctx, input)
		if err != nil {
			return pages, &models.PageFailure{Function: function, Stream: streamName, Page: pages + 1, Code: errorCode(err), Err: err}
		}
		pages++

		for _, e := range output.Events {
			handle(models.LogEvent{
				Timestamp:  aws.ToInt64(e.Timestamp),
				Message:    aws.ToString(e.Message),
				StreamName: streamName,
			})
		}

		next := output.NextForwardToken
		if next == nil || (token != nil && *next == *token) {
			return pages, nil
		}
		token = next
	}
}

// filterStream reads one stream with FilterLogEvents, following NextToken
// until it is absent
func (s *LogStreamSource) filterStream(ctx context.Context, function, streamName string, handle func(models.LogEvent)) (int, error) {
	logGroupName := models.LogGroupName(function)
	var token *string
	pages := 0

	for {
		input := &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName:   aws.String(logGroupName),
			LogStreamNames: []string{streamName},
			FilterPattern:  aws.String(s.opts.FilterPattern),
			NextToken:      token,
		}
		if s.opts.PageSize > 0 {
			input.Limit = aws.Int32(s.opts.PageSize)
		}
		if !s.opts.Window.Unbounded() {
			input.StartTime = aws.Int64(s.opts.Window.Start.UnixMilli())
			input.EndTime = aws.Int64(s.opts.Window.End.UnixMilli())
		}

		output, err := s.client.FilterLogEvents(ctx, input)
		if err != nil {
			return pages, &models.PageFailure{Function: function, Stream: streamName, Page: pages + 1, Code: errorCode(err), Err: err}
		}
		pages++

		for _, e := range output.Events {
			handle(models.LogEvent{
				Timestamp:  aws.ToInt64(e.Timestamp),
				Message:    aws.ToString(e.Message),
				StreamName: streamName,
			})
		}

		next := output.NextToken
		if next == nil || *next == "" || (token != nil && *next == *token) {
			return pages, nil
		}
		token = next
	}
}
