package logs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers CloudWatch log groups matching the reap patterns
type Watcher struct {
	logsAPI SDKLogsOps
}

// SDKLogsOps is an interface that combines the necessary CloudWatch Logs SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKLogsOps interface {
	cloudwatchlogs.DescribeLogGroupsAPIClient
	DeleteLogGroup(context.Context, *cloudwatchlogs.DeleteLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteLogGroupOutput, error)
}

// LogGroup represents a CloudWatch log group
// This is not the AWS SDK LogGroup type, but a wrapper around it so that we can add additional data
type LogGroup struct {
	cwltypes.LogGroup
	Label string
}

// NewWatcher creates a new LogGroup Watcher
func NewWatcher(logsAPI SDKLogsOps) Watcher {
	return Watcher{
		logsAPI: logsAPI,
	}
}

// Resolve returns log groups whose name matches any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]LogGroup, error) {
	var logGroups []LogGroup
	pager := cloudwatchlogs.NewDescribeLogGroupsPaginator(w.logsAPI, &cloudwatchlogs.DescribeLogGroupsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe log groups: %w", err)
		}
		for _, sdkLogGroup := range page.LogGroups {
			if label, ok := patterns.Match(lo.FromPtr(sdkLogGroup.LogGroupName), nil, patternList); ok {
				logGroups = append(logGroups, LogGroup{sdkLogGroup, label})
			}
		}
	}
	return logGroups, nil
}

func (w Watcher) Delete(ctx context.Context, logGroupName string) error {
	_, err := w.logsAPI.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{LogGroupName: &logGroupName})
	return err
}
