package databases

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers RDS instances and DB subnet groups matching the reap patterns
type Watcher struct {
	rdsAPI       SDKDatabasesOps
	pollInterval time.Duration
}

// SDKDatabasesOps is an interface that combines the necessary RDS SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKDatabasesOps interface {
	rds.DescribeDBInstancesAPIClient
	rds.DescribeDBSubnetGroupsAPIClient
	DeleteDBInstance(context.Context, *rds.DeleteDBInstanceInput, ...func(*rds.Options)) (*rds.DeleteDBInstanceOutput, error)
	DeleteDBSubnetGroup(context.Context, *rds.DeleteDBSubnetGroupInput, ...func(*rds.Options)) (*rds.DeleteDBSubnetGroupOutput, error)
}

// Database represents an RDS database instance
// This is not the AWS SDK DBInstance type, but a wrapper around it so that we can add additional data
type Database struct {
	rdstypes.DBInstance
	Label string
}

// SubnetGroup represents an RDS DB subnet group
// This is not the AWS SDK DBSubnetGroup type, but a wrapper around it so that we can add additional data
type SubnetGroup struct {
	rdstypes.DBSubnetGroup
	Label string
}

// NewWatcher creates a new Database Watcher
func NewWatcher(rdsAPI SDKDatabasesOps) Watcher {
	return Watcher{
		rdsAPI:       rdsAPI,
		pollInterval: 30 * time.Second,
	}
}

// WithPollInterval overrides the delay between deletion-wait polls
func (w Watcher) WithPollInterval(interval time.Duration) Watcher {
	w.pollInterval = interval
	return w
}

// Resolve returns database instances whose identifier matches any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Database, error) {
	var databases []Database
	pager := rds.NewDescribeDBInstancesPaginator(w.rdsAPI, &rds.DescribeDBInstancesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe db instances: %w", err)
		}
		for _, sdkDatabase := range page.DBInstances {
			if label, ok := patterns.Match(lo.FromPtr(sdkDatabase.DBInstanceIdentifier), nil, patternList); ok {
				databases = append(databases, Database{sdkDatabase, label})
			}
		}
	}
	return databases, nil
}

// ResolveSubnetGroups returns DB subnet groups whose name matches any pattern
func (w Watcher) ResolveSubnetGroups(ctx context.Context, patternList []string) ([]SubnetGroup, error) {
	var subnetGroups []SubnetGroup
	pager := rds.NewDescribeDBSubnetGroupsPaginator(w.rdsAPI, &rds.DescribeDBSubnetGroupsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe db subnet groups: %w", err)
		}
		for _, sdkSubnetGroup := range page.DBSubnetGroups {
			if label, ok := patterns.Match(lo.FromPtr(sdkSubnetGroup.DBSubnetGroupName), nil, patternList); ok {
				subnetGroups = append(subnetGroups, SubnetGroup{sdkSubnetGroup, label})
			}
		}
	}
	return subnetGroups, nil
}

// Delete requests deletion without a final snapshot. Deletion is
// asynchronous; callers must WaitDeleted before touching subnet groups.
func (w Watcher) Delete(ctx context.Context, dbInstanceID string) error {
	_, err := w.rdsAPI.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier:   &dbInstanceID,
		SkipFinalSnapshot:      aws.Bool(true),
		DeleteAutomatedBackups: aws.Bool(true),
	})
	return err
}

// WaitDeleted blocks until the control plane no longer reports the instance
// or the timeout elapses.
func (w Watcher) WaitDeleted(ctx context.Context, dbInstanceID string, timeout time.Duration) error {
	waiter := rds.NewDBInstanceDeletedWaiter(w.rdsAPI, func(o *rds.DBInstanceDeletedWaiterOptions) {
		o.MinDelay = w.pollInterval
		o.MaxDelay = w.pollInterval
	})
	return waiter.Wait(ctx, &rds.DescribeDBInstancesInput{DBInstanceIdentifier: &dbInstanceID}, timeout)
}

func (w Watcher) DeleteSubnetGroup(ctx context.Context, subnetGroupName string) error {
	_, err := w.rdsAPI.DeleteDBSubnetGroup(ctx, &rds.DeleteDBSubnetGroupInput{DBSubnetGroupName: &subnetGroupName})
	return err
}
