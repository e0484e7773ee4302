package models

// LogStreamInfo holds the log stream fields the stream walker needs
type LogStreamInfo struct {
	Name            string
	LastEventMillis int64 // last event timestamp, used for ordering
	StoredBytes     int64
}

// LogGroupName returns the CloudWatch log group of a Lambda function
func LogGroupName(functionName string) string {
	return "/aws/lambda/" + functionName
}
