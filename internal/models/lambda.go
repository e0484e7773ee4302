package models

import "time"

// LambdaFunctionInfo represents a Lambda function found during discovery
type LambdaFunctionInfo struct {
	FunctionName string     // Lambda function name
	Runtime      string     // Runtime (e.g., nodejs20.x, python3.12)
	MemorySize   int32      // Memory allocation in MB
	LastModified *time.Time // Last modification time
}
