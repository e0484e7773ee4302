package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/pkg/utils"
)

func resultRow(kv ...string) []types.ResultField {
	var fields []types.ResultField
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, types.ResultField{Field: aws.String(kv[i]), Value: aws.String(kv[i+1])})
	}
	return fields
}

// newTestInsights returns a source whose sleeps are counted, not taken
func newTestInsights(fake *fakeLogs, opts InsightsOptions) (*InsightsSource, *int) {
	src := NewInsightsSource(fake, opts)
	sleeps := 0
	src.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}
	return src, &sleeps
}

func TestInsightsPollsUntilComplete(t *testing.T) {
	fake := newFakeLogs()
	fake.statuses = []types.QueryStatus{types.QueryStatusScheduled, types.QueryStatusRunning, types.QueryStatusComplete}
	fake.results = [][]types.ResultField{
		resultRow("@timestamp", "2023-11-14 22:13:20.000", "@requestId", "abc-123",
			"@duration", "2.78", "@billedDuration", "3", "@memorySize", "128", "@maxMemoryUsed", "45",
			"@ptr", "CmAKJgoi"),
		resultRow("@timestamp", "2023-11-14 22:14:00.500", "@requestId", "def-456",
			"@duration", "1012.55", "@initDuration", "187.41"),
	}

	src, sleeps := newTestInsights(fake, InsightsOptions{})
	sink := &recordingSink{}
	require.NoError(t, src.Fetch(context.Background(), "slack_invitor", sink))

	assert.Equal(t, 3, fake.resultCalls)
	assert.Equal(t, 2, *sleeps)
	assert.Zero(t, fake.stopCalls)
	assert.Empty(t, sink.warnings)
	require.Len(t, sink.rows, 2)

	first := sink.rows[0].(models.QueryRow)
	assert.Equal(t, "abc-123", first.RequestID)
	assert.True(t, first.Timestamp.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)))
	assert.Equal(t, map[string]string{
		models.MetricDuration:       "2.78",
		models.MetricBilledDuration: "3",
		models.MetricMemorySize:     "128",
		models.MetricMaxMemoryUsed:  "45",
	}, first.Fields)

	second := sink.rows[1].(models.QueryRow)
	assert.Equal(t, "187.41", second.Fields[models.MetricInitDuration])
}

func TestInsightsStartQueryInput(t *testing.T) {
	fake := newFakeLogs()
	fake.statuses = []types.QueryStatus{types.QueryStatusComplete}

	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src, _ := newTestInsights(fake, InsightsOptions{Window: utils.Window{End: end}, Limit: 50000})
	require.NoError(t, src.Fetch(context.Background(), "fn", &recordingSink{}))

	in := fake.startInput
	require.NotNil(t, in)
	assert.Equal(t, "/aws/lambda/fn", aws.ToString(in.LogGroupName))
	assert.Equal(t, int64(0), aws.ToInt64(in.StartTime))
	assert.Equal(t, end.Unix(), aws.ToInt64(in.EndTime))
	assert.Equal(t, int32(MaxQueryLimit), aws.ToInt32(in.Limit))
	assert.Contains(t, aws.ToString(in.QueryString), `filter @type = "REPORT"`)
}

func TestInsightsPollLimit(t *testing.T) {
	fake := newFakeLogs()

	src, sleeps := newTestInsights(fake, InsightsOptions{MaxPolls: 3, PollInterval: time.Second})
	err := src.Fetch(context.Background(), "fn", &recordingSink{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrQueryPollExhausted))
	assert.Equal(t, 3, fake.resultCalls)
	assert.Equal(t, 2, *sleeps)
	assert.Equal(t, 1, fake.stopCalls)
}

func TestInsightsFailedQuery(t *testing.T) {
	for _, status := range []types.QueryStatus{types.QueryStatusFailed, types.QueryStatusCancelled, types.QueryStatusTimeout} {
		t.Run(string(status), func(t *testing.T) {
			fake := newFakeLogs()
			fake.statuses = []types.QueryStatus{types.QueryStatusRunning, status}

			src, _ := newTestInsights(fake, InsightsOptions{})
			err := src.Fetch(context.Background(), "fn", &recordingSink{})

			require.Error(t, err)
			assert.Contains(t, err.Error(), string(status))
			assert.Equal(t, 2, fake.resultCalls)
		})
	}
}

func TestInsightsStartFailure(t *testing.T) {
	fake := newFakeLogs()
	fake.startErr = &types.ResourceNotFoundException{Message: aws.String("Log group does not exist")}

	src, _ := newTestInsights(fake, InsightsOptions{})
	err := src.Fetch(context.Background(), "fn", &recordingSink{})

	var notFound *types.ResourceNotFoundException
	assert.True(t, errors.As(err, &notFound))
	assert.Zero(t, fake.resultCalls)
}

func TestInsightsInvalidRows(t *testing.T) {
	fake := newFakeLogs()
	fake.statuses = []types.QueryStatus{types.QueryStatusComplete}
	fake.results = [][]types.ResultField{
		resultRow("@timestamp", "2023-11-14 22:13:20.000", "@duration", "2.78"),
		resultRow("@timestamp", "yesterday", "@requestId", "r2"),
		resultRow("@timestamp", "2023-11-14 22:13:21.000", "@requestId", "r3", "@duration", "5.1"),
	}

	src, _ := newTestInsights(fake, InsightsOptions{})
	sink := &recordingSink{}
	require.NoError(t, src.Fetch(context.Background(), "fn", sink))

	require.Len(t, sink.rows, 1)
	assert.Equal(t, "r3", sink.rows[0].(models.QueryRow).RequestID)

	require.Len(t, sink.warnings, 2)
	assert.ErrorIs(t, sink.warnings[0], models.ErrMissingRequestID)
	var recordErr *models.RecordFailure
	assert.True(t, errors.As(sink.warnings[1], &recordErr))
	assert.Contains(t, recordErr.Line, "@timestamp=yesterday")
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
