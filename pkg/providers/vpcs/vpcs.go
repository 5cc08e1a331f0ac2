package vpcs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// Watcher discovers vpcs matching the reap patterns
type Watcher struct {
	vpcAPI SDKVPCsOps
}

// SDKVPCsOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKVPCsOps interface {
	ec2.DescribeVpcsAPIClient
	DeleteVpc(context.Context, *ec2.DeleteVpcInput, ...func(*ec2.Options)) (*ec2.DeleteVpcOutput, error)
}

// VPC represent an AWS VPC
// This is not the AWS SDK VPC type, but a wrapper around it so that we can add additional data
type VPC struct {
	ec2types.Vpc
	Label string
}

// NewWatcher creates a new VPC Watcher
func NewWatcher(vpcAPI SDKVPCsOps) Watcher {
	return Watcher{
		vpcAPI: vpcAPI,
	}
}

// Resolve returns VPCs whose Name tag or tags match any pattern.
// The account default VPC is never returned.
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]VPC, error) {
	var vpcs []VPC
	pager := ec2.NewDescribeVpcsPaginator(w.vpcAPI, &ec2.DescribeVpcsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe vpcs: %w", err)
		}
		for _, sdkVPC := range page.Vpcs {
			if lo.FromPtr(sdkVPC.IsDefault) {
				continue
			}
			if label, ok := patterns.Match(tagutils.Name(sdkVPC.Tags), tagutils.EC2TagsToMap(sdkVPC.Tags), patternList); ok {
				vpcs = append(vpcs, VPC{sdkVPC, label})
			}
		}
	}
	return vpcs, nil
}

func (w Watcher) Delete(ctx context.Context, vpcID string) error {
	_, err := w.vpcAPI.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: &vpcID})
	return err
}
