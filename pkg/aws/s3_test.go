package aws

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	f.contentType = aws.ToString(params.ContentType)
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3PublisherUploadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slack_invitor_logs.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,requestId\n"), 0o644))

	fake := &fakeS3{}
	uri, err := NewS3Publisher(fake, "telemetry", "lambda/2024").Publish(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "s3://telemetry/lambda/2024/slack_invitor_logs.csv", uri)
	assert.Equal(t, "telemetry", fake.bucket)
	assert.Equal(t, "lambda/2024/slack_invitor_logs.csv", fake.key)
	assert.Equal(t, "text/csv", fake.contentType)
	assert.Equal(t, "timestamp,requestId\n", string(fake.body))
}

func TestS3PublisherKeyWithoutPrefix(t *testing.T) {
	assert.Equal(t, "fn_metrics.csv", NewS3Publisher(&fakeS3{}, "b", "").Key("/tmp/out/fn_metrics.csv"))
}

func TestS3PublisherError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fn_logs.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))

	fake := &fakeS3{err: &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "missing"}}
	_, err := NewS3Publisher(fake, "missing", "").Publish(context.Background(), path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchBucket")

	_, err = NewS3Publisher(&fakeS3{}, "b", "").Publish(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
