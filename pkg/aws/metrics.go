package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/pkg/utils"
)

const (
	lambdaNamespace = "AWS/Lambda"

	// DefaultPeriod is the statistics granularity in seconds
	DefaultPeriod = 3600

	// DefaultSeriesStat is the GetMetricData stat used when none is configured
	DefaultSeriesStat = string(cwTypes.StatisticAverage)

	// CloudWatch keeps hourly datapoints for 455 days
	metricRetention = 455 * 24 * time.Hour

	// GetMetricStatistics rejects requests for more datapoints than this
	maxStatisticsDatapoints = 1440
)

// DefaultMetrics are the AWS/Lambda metrics fetched when none are configured
var DefaultMetrics = []string{"Invocations", "Errors", "Throttles", "Duration", "ConcurrentExecutions"}

// DefaultStatistics are requested from GetMetricStatistics when none are
// configured
var DefaultStatistics = []cwTypes.Statistic{
	cwTypes.StatisticAverage,
	cwTypes.StatisticMaximum,
	cwTypes.StatisticMinimum,
	cwTypes.StatisticSum,
	cwTypes.StatisticSampleCount,
}

// MetricsAPI is the part of the CloudWatch client lamstat uses
type MetricsAPI interface {
	cloudwatch.GetMetricDataAPIClient
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// NewMetricsClient creates a CloudWatch client from cfg
func NewMetricsClient(cfg aws.Config) *cloudwatch.Client {
	return cloudwatch.NewFromConfig(cfg)
}

// MetricOptions configures the metric sources
type MetricOptions struct {
	Window     utils.Window
	Metrics    []string            // AWS/Lambda metric names
	Statistics []cwTypes.Statistic // GetMetricStatistics only
	Stat       string              // GetMetricData stat, e.g. "Average", "p95"
	Period     int32               // seconds
}

// StatisticNames returns the names of stats, e.g. for configuration defaults
func StatisticNames(stats []cwTypes.Statistic) []string {
	names := make([]string, 0, len(stats))
	for _, stat := range stats {
		names = append(names, string(stat))
	}
	return names
}

func (o MetricOptions) withDefaults() MetricOptions {
	if len(o.Metrics) == 0 {
		o.Metrics = DefaultMetrics
	}
	if len(o.Statistics) == 0 {
		o.Statistics = DefaultStatistics
	}
	if o.Stat == "" {
		o.Stat = DefaultSeriesStat
	}
	if o.Period <= 0 {
		o.Period = DefaultPeriod
	}
	return o
}

// bounds returns the window clamped to CloudWatch metric retention
func (o MetricOptions) bounds() (time.Time, time.Time) {
	end := o.Window.End
	start := o.Window.Start
	if earliest := end.Add(-metricRetention); o.Window.Unbounded() || start.Before(earliest) {
		start = earliest
	}
	return start, end
}

// span is one GetMetricStatistics request window
type span struct {
	start, end time.Time
}

// statisticsSpans splits [start, end) into consecutive spans of at most
// maxStatisticsDatapoints periods each
func statisticsSpans(start, end time.Time, period int32) []span {
	step := time.Duration(period) * time.Second * maxStatisticsDatapoints
	var spans []span
	for from := start; from.Before(end); from = from.Add(step) {
		to := from.Add(step)
		if to.After(end) {
			to = end
		}
		spans = append(spans, span{start: from, end: to})
	}
	return spans
}

func functionDimension(function string) []cwTypes.Dimension {
	return []cwTypes.Dimension{
		{
			Name:  aws.String("FunctionName"),
			Value: aws.String(function),
		},
	}
}

// MetricStatisticsSource fetches statistics datapoints per metric with
// GetMetricStatistics
type MetricStatisticsSource struct {
	client MetricsAPI
	opts   MetricOptions
}

// NewMetricStatisticsSource creates a MetricStatisticsSource
func NewMetricStatisticsSource(client MetricsAPI, opts MetricOptions) *MetricStatisticsSource {
	return &MetricStatisticsSource{client: client, opts: opts.withDefaults()}
}

// Mode returns the extraction mode name
func (s *MetricStatisticsSource) Mode() string {
	return models.ModeMetrics
}

// Fetch adds one row per datapoint of every configured metric. Long windows
// are requested span by span. A failing span truncates its metric, keeping
// the earlier spans, and the remaining metrics are still fetched.
func (s *MetricStatisticsSource) Fetch(ctx context.Context, function string, sink models.Sink) error {
	start, end := s.opts.bounds()
	spans := statisticsSpans(start, end, s.opts.Period)

	for _, metricName := range s.opts.Metrics {
		for i, sp := range spans {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := s.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
				Namespace:  aws.String(lambdaNamespace),
				MetricName: aws.String(metricName),
				Dimensions: functionDimension(function),
				StartTime:  aws.Time(sp.start),
				EndTime:    aws.Time(sp.end),
				Period:     aws.Int32(s.opts.Period),
				Statistics: s.opts.Statistics,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				sink.Warn(&models.PageFailure{
					Function: function,
					Stream:   metricName,
					Page:     i + 1,
					Code:     errorCode(err),
					Err:      err,
				})
				break
			}

			for _, dp := range result.Datapoints {
				sink.Add(models.MetricDatapoint{
					FunctionName: function,
					MetricName:   metricName,
					Unit:         string(dp.Unit),
					Timestamp:    aws.ToTime(dp.Timestamp).UTC(),
					Average:      dp.Average,
					Maximum:      dp.Maximum,
					Minimum:      dp.Minimum,
					Sum:          dp.Sum,
					SampleCount:  dp.SampleCount,
				})
			}
		}
	}

	return nil
}

// MetricSeriesSource fetches one time series per metric with GetMetricData
type MetricSeriesSource struct {
	client MetricsAPI
	opts   MetricOptions
}

// NewMetricSeriesSource creates a MetricSeriesSource
func NewMetricSeriesSource(client MetricsAPI, opts MetricOptions) *MetricSeriesSource {
	return &MetricSeriesSource{client: client, opts: opts.withDefaults()}
}

// Mode returns the extraction mode name
func (s *MetricSeriesSource) Mode() string {
	return models.ModeSeries
}

// Fetch adds one row per (timestamp, value) pair of every series. A failed
// page stops the query; rows from earlier pages are kept.
func (s *MetricSeriesSource) Fetch(ctx context.Context, function string, sink models.Sink) error {
	start, end := s.opts.bounds()

	queries := make([]cwTypes.MetricDataQuery, 0, len(s.opts.Metrics))
	labels := make(map[string]string, len(s.opts.Metrics))
	for i, metricName := range s.opts.Metrics {
		id := fmt.Sprintf("m%d", i)
		label := fmt.Sprintf("%s %s", metricName, s.opts.Stat)
		labels[id] = label
		queries = append(queries, cwTypes.MetricDataQuery{
			Id:    aws.String(id),
			Label: aws.String(label),
			MetricStat: &cwTypes.MetricStat{
				Metric: &cwTypes.Metric{
					Namespace:  aws.String(lambdaNamespace),
					MetricName: aws.String(metricName),
					Dimensions: functionDimension(function),
				},
				Period: aws.Int32(s.opts.Period),
				Stat:   aws.String(s.opts.Stat),
			},
		})
	}

	paginator := cloudwatch.NewGetMetricDataPaginator(s.client, &cloudwatch.GetMetricDataInput{
		MetricDataQueries: queries,
		StartTime:         aws.Time(start),
		EndTime:           aws.Time(end),
		ScanBy:            cwTypes.ScanByTimestampAscending,
	})

	pageCount := 0
	for paginator.HasMorePages() {
		pageCount++
		output, err := paginator.NextPage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			sink.Warn(&models.PageFailure{
				Function: function,
				Stream:   strings.Join(s.opts.Metrics, ","),
				Page:     pageCount,
				Code:     errorCode(err),
				Err:      err,
			})
			return nil
		}

		for _, result := range output.MetricDataResults {
			series := labels[aws.ToString(result.Id)]
			if series == "" {
				series = aws.ToString(result.Label)
			}
			for i, ts := range result.Timestamps {
				if i >= len(result.Values) {
					break
				}
				sink.Add(models.SeriesPoint{
					FunctionName: function,
					Series:       series,
					Timestamp:    ts.UTC(),
					Value:        result.Values[i],
				})
			}
		}
	}

	return nil
}
