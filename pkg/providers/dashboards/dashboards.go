package dashboards

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers CloudWatch dashboards and alarms matching the reap patterns
type Watcher struct {
	cloudwatchAPI SDKDashboardsOps
}

// SDKDashboardsOps is an interface that combines the necessary CloudWatch SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKDashboardsOps interface {
	cloudwatch.ListDashboardsAPIClient
	cloudwatch.DescribeAlarmsAPIClient
	DeleteDashboards(context.Context, *cloudwatch.DeleteDashboardsInput, ...func(*cloudwatch.Options)) (*cloudwatch.DeleteDashboardsOutput, error)
	DeleteAlarms(context.Context, *cloudwatch.DeleteAlarmsInput, ...func(*cloudwatch.Options)) (*cloudwatch.DeleteAlarmsOutput, error)
}

// Dashboard represents a CloudWatch dashboard
// This is not the AWS SDK DashboardEntry type, but a wrapper around it so that we can add additional data
type Dashboard struct {
	cwtypes.DashboardEntry
	Label string
}

// Alarm represents a CloudWatch metric alarm
// This is not the AWS SDK MetricAlarm type, but a wrapper around it so that we can add additional data
type Alarm struct {
	cwtypes.MetricAlarm
	Label string
}

// NewWatcher creates a new Dashboard Watcher
func NewWatcher(cloudwatchAPI SDKDashboardsOps) Watcher {
	return Watcher{
		cloudwatchAPI: cloudwatchAPI,
	}
}

// Resolve returns dashboards whose name matches any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Dashboard, error) {
	var dashboards []Dashboard
	pager := cloudwatch.NewListDashboardsPaginator(w.cloudwatchAPI, &cloudwatch.ListDashboardsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list dashboards: %w", err)
		}
		for _, sdkDashboard := range page.DashboardEntries {
			if label, ok := patterns.Match(lo.FromPtr(sdkDashboard.DashboardName), nil, patternList); ok {
				dashboards = append(dashboards, Dashboard{sdkDashboard, label})
			}
		}
	}
	return dashboards, nil
}

// ResolveAlarms returns metric alarms whose name matches any pattern
func (w Watcher) ResolveAlarms(ctx context.Context, patternList []string) ([]Alarm, error) {
	var alarms []Alarm
	pager := cloudwatch.NewDescribeAlarmsPaginator(w.cloudwatchAPI, &cloudwatch.DescribeAlarmsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe alarms: %w", err)
		}
		for _, sdkAlarm := range page.MetricAlarms {
			if label, ok := patterns.Match(lo.FromPtr(sdkAlarm.AlarmName), nil, patternList); ok {
				alarms = append(alarms, Alarm{sdkAlarm, label})
			}
		}
	}
	return alarms, nil
}

func (w Watcher) Delete(ctx context.Context, dashboardName string) error {
	_, err := w.cloudwatchAPI.DeleteDashboards(ctx, &cloudwatch.DeleteDashboardsInput{DashboardNames: []string{dashboardName}})
	return err
}

func (w Watcher) DeleteAlarm(ctx context.Context, alarmName string) error {
	_, err := w.cloudwatchAPI.DeleteAlarms(ctx, &cloudwatch.DeleteAlarmsInput{AlarmNames: []string{alarmName}})
	return err
}
