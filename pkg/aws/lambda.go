package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/younsl/lamstat/internal/models"
)

// LambdaAPI is the part of the Lambda client lamstat uses
type LambdaAPI interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
}

// NewLambdaClient creates a Lambda client from cfg
func NewLambdaClient(cfg aws.Config) *lambda.Client {
	return lambda.NewFromConfig(cfg)
}

// ListFunctions returns every Lambda function in the client's region,
// sorted by name
func ListFunctions(ctx context.Context, client LambdaAPI) ([]models.LambdaFunctionInfo, error) {
	var functionInfos []models.LambdaFunctionInfo
	var nextMarker *string

	for {
		result, err := client.ListFunctions(ctx, &lambda.ListFunctionsInput{
			Marker: nextMarker,
		})
		if err != nil {
			return nil, fmt.Errorf("error listing Lambda functions: %w", err)
		}

		for _, function := range result.Functions {
			info := models.LambdaFunctionInfo{
				FunctionName: aws.ToString(function.FunctionName),
				Runtime:      string(function.Runtime),
				MemorySize:   aws.ToInt32(function.MemorySize),
			}
			// Lambda reports LastModified as e.g. 2024-01-02T03:04:05.000+0000
			if function.LastModified != nil {
				if parsed, err := time.Parse("2006-01-02T15:04:05.000-0700", *function.LastModified); err == nil {
					info.LastModified = &parsed
				}
			}
			functionInfos = append(functionInfos, info)
		}

		if result.NextMarker == nil || *result.NextMarker == "" {
			break
		}
		nextMarker = result.NextMarker
	}

	sort.Slice(functionInfos, func(i, j int) bool {
		return functionInfos[i].FunctionName < functionInfos[j].FunctionName
	})

	return functionInfos, nil
}
