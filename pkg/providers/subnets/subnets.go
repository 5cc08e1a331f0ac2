package subnets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
)

// Watcher discovers subnets matching the reap patterns
type Watcher struct {
	subnetAPI SDKSubnetsOps
}

// SDKSubnetsOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKSubnetsOps interface {
	ec2.DescribeSubnetsAPIClient
	DeleteSubnet(context.Context, *ec2.DeleteSubnetInput, ...func(*ec2.Options)) (*ec2.DeleteSubnetOutput, error)
}

// Subnet represent an AWS Subnet
// This is not the AWS SDK Subnet type, but a wrapper around it so that we can add additional data
type Subnet struct {
	ec2types.Subnet
	Label string
}

// NewWatcher creates a new Subnet Watcher
func NewWatcher(subnetAPI SDKSubnetsOps) Watcher {
	return Watcher{
		subnetAPI: subnetAPI,
	}
}

// Resolve returns subnets whose Name tag or tags match any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Subnet, error) {
	var subnets []Subnet
	pager := ec2.NewDescribeSubnetsPaginator(w.subnetAPI, &ec2.DescribeSubnetsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe subnets: %w", err)
		}
		for _, sdkSubnet := range page.Subnets {
			if label, ok := patterns.Match(tagutils.Name(sdkSubnet.Tags), tagutils.EC2TagsToMap(sdkSubnet.Tags), patternList); ok {
				subnets = append(subnets, Subnet{sdkSubnet, label})
			}
		}
	}
	return subnets, nil
}

func (w Watcher) Delete(ctx context.Context, subnetID string) error {
	_, err := w.subnetAPI.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: &subnetID})
	return err
}
