package instances

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// Watcher discovers instances whose Name tag or tags match the reap patterns
type Watcher struct {
	instanceAPI  SDKInstancesOps
	pollInterval time.Duration
}

// SDKInstancesOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKInstancesOps interface {
	ec2.DescribeInstancesAPIClient
	TerminateInstances(context.Context, *ec2.TerminateInstancesInput, ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

// Instance represents an Amazon EC2 Instance
// This is not the AWS SDK Instance type, but a wrapper around it so that we can add additional data
type Instance struct {
	ec2types.Instance
	Label string
}

// NewWatcher creates a new Instance Watcher
func NewWatcher(instanceAPI SDKInstancesOps) Watcher {
	return Watcher{
		instanceAPI:  instanceAPI,
		pollInterval: 15 * time.Second,
	}
}

// WithPollInterval overrides the delay between termination-wait polls
func (w Watcher) WithPollInterval(interval time.Duration) Watcher {
	w.pollInterval = interval
	return w
}

// Resolve returns instances in a non-terminal state that match any pattern.
// Matching is strictly by Name tag and tags; an instance with no matching
// tag is never selected.
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Instance, error) {
	var instances []Instance
	pager := ec2.NewDescribeInstancesPaginator(w.instanceAPI, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("instance-state-name"),
			Values: []string{"pending", "running", "stopping", "stopped"},
		}},
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		instances = append(instances, lo.FlatMap(page.Reservations, func(sdkReservation ec2types.Reservation, _ int) []Instance {
			var matched []Instance
			for _, sdkInstance := range sdkReservation.Instances {
				if label, ok := patterns.Match(tagutils.Name(sdkInstance.Tags), tagutils.EC2TagsToMap(sdkInstance.Tags), patternList); ok {
					matched = append(matched, Instance{sdkInstance, label})
				}
			}
			return matched
		})...)
	}
	return instances, nil
}

func (w Watcher) Terminate(ctx context.Context, instanceID string) error {
	_, err := w.instanceAPI.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}})
	return err
}

// WaitTerminated blocks until every instance reaches the terminated state or
// the timeout elapses. Network teardown cannot start while instances exist.
func (w Watcher) WaitTerminated(ctx context.Context, instanceIDs []string, timeout time.Duration) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	waiter := ec2.NewInstanceTerminatedWaiter(w.instanceAPI, func(o *ec2.InstanceTerminatedWaiterOptions) {
		o.MinDelay = w.pollInterval
		o.MaxDelay = w.pollInterval
	})
	return waiter.Wait(ctx, &ec2.DescribeInstancesInput{InstanceIds: instanceIDs}, timeout)
}
