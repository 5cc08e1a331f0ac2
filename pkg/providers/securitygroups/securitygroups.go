package securitygroups

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// Watcher discovers security groups matching the reap patterns
type Watcher struct {
	sg SDKSecurityGroupOps
}

// SDKSecurityGroupOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKSecurityGroupOps interface {
	ec2.DescribeSecurityGroupsAPIClient
	RevokeSecurityGroupIngress(context.Context, *ec2.RevokeSecurityGroupIngressInput, ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupEgress(context.Context, *ec2.RevokeSecurityGroupEgressInput, ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error)
	DeleteSecurityGroup(context.Context, *ec2.DeleteSecurityGroupInput, ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error)
}

// SecurityGroup represent an AWS Security Group
// This is not the AWS SDK SecurityGroup type, but a wrapper around it so that we can add additional data
type SecurityGroup struct {
	ec2types.SecurityGroup
	Label string
}

// NewWatcher creates a new Security Group Watcher
func NewWatcher(sg SDKSecurityGroupOps) Watcher {
	return Watcher{
		sg: sg,
	}
}

// Resolve returns security groups whose name or tags match any pattern.
// The default group is system-managed and is never returned.
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]SecurityGroup, error) {
	var securityGroups []SecurityGroup
	pager := ec2.NewDescribeSecurityGroupsPaginator(w.sg, &ec2.DescribeSecurityGroupsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe security groups: %w", err)
		}
		for _, sdkSG := range page.SecurityGroups {
			if lo.FromPtr(sdkSG.GroupName) == "default" {
				continue
			}
			if label, ok := patterns.Match(lo.FromPtr(sdkSG.GroupName), tagutils.EC2TagsToMap(sdkSG.Tags), patternList); ok {
				securityGroups = append(securityGroups, SecurityGroup{sdkSG, label})
			}
		}
	}
	return securityGroups, nil
}

// RevokeRules revokes the group's full ingress and egress rule sets.
// The live rule set is read immediately before revoking; revoking from a
// stale cached copy fails when rules changed since discovery.
func (w Watcher) RevokeRules(ctx context.Context, sgID string) error {
	out, err := w.sg.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: []string{sgID}})
	if err != nil {
		return fmt.Errorf("failed to read rules for security group %s: %w", sgID, err)
	}
	if len(out.SecurityGroups) == 0 {
		return nil
	}
	group := out.SecurityGroups[0]
	if len(group.IpPermissions) > 0 {
		if _, err := w.sg.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:       aws.String(sgID),
			IpPermissions: group.IpPermissions,
		}); err != nil {
			return fmt.Errorf("failed to revoke ingress rules for security group %s: %w", sgID, err)
		}
	}
	if len(group.IpPermissionsEgress) > 0 {
		if _, err := w.sg.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
			GroupId:       aws.String(sgID),
			IpPermissions: group.IpPermissionsEgress,
		}); err != nil {
			return fmt.Errorf("failed to revoke egress rules for security group %s: %w", sgID, err)
		}
	}
	return nil
}

func (w Watcher) Delete(ctx context.Context, sgID string) error {
	_, err := w.sg.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: &sgID})
	return err
}
