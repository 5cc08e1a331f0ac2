package securitygroups_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/providers/securitygroups"
)

type fakeEC2 struct {
	calls          []string
	groups         []ec2types.SecurityGroup
	revokedIngress []ec2types.IpPermission
	revokedEgress  []ec2types.IpPermission
}

func (f *fakeEC2) DescribeSecurityGroups(_ context.Context, params *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	f.calls = append(f.calls, "DescribeSecurityGroups")
	if len(params.GroupIds) == 0 {
		return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: f.groups}, nil
	}
	var matched []ec2types.SecurityGroup
	for _, group := range f.groups {
		for _, id := range params.GroupIds {
			if *group.GroupId == id {
				matched = append(matched, group)
			}
		}
	}
	return &ec2.DescribeSecurityGroupsOutput{SecurityGroups: matched}, nil
}

func (f *fakeEC2) RevokeSecurityGroupIngress(_ context.Context, params *ec2.RevokeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error) {
	f.calls = append(f.calls, "RevokeSecurityGroupIngress")
	f.revokedIngress = append(f.revokedIngress, params.IpPermissions...)
	return &ec2.RevokeSecurityGroupIngressOutput{}, nil
}

func (f *fakeEC2) RevokeSecurityGroupEgress(_ context.Context, params *ec2.RevokeSecurityGroupEgressInput, _ ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error) {
	f.calls = append(f.calls, "RevokeSecurityGroupEgress")
	f.revokedEgress = append(f.revokedEgress, params.IpPermissions...)
	return &ec2.RevokeSecurityGroupEgressOutput{}, nil
}

func (f *fakeEC2) DeleteSecurityGroup(_ context.Context, _ *ec2.DeleteSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error) {
	f.calls = append(f.calls, "DeleteSecurityGroup")
	return &ec2.DeleteSecurityGroupOutput{}, nil
}

func TestResolveSkipsDefaultGroup(t *testing.T) {
	f := &fakeEC2{
		groups: []ec2types.SecurityGroup{
			{GroupId: aws.String("sg-default"), GroupName: aws.String("default")},
			{GroupId: aws.String("sg-task"), GroupName: aws.String("task-sg")},
		},
	}
	watcher := securitygroups.NewWatcher(f)

	resolved, err := watcher.Resolve(context.Background(), []string{"task", "default"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 security group, got %v", resolved)
	}
	if *resolved[0].GroupId != "sg-task" {
		t.Errorf("expected sg-task, got %s", *resolved[0].GroupId)
	}
}

func TestRevokeRules(t *testing.T) {
	f := &fakeEC2{
		groups: []ec2types.SecurityGroup{{
			GroupId:   aws.String("sg-task"),
			GroupName: aws.String("task-sg"),
			IpPermissions: []ec2types.IpPermission{
				{IpProtocol: aws.String("tcp"), FromPort: aws.Int32(22), ToPort: aws.Int32(22)},
				{IpProtocol: aws.String("tcp"), FromPort: aws.Int32(443), ToPort: aws.Int32(443)},
			},
			IpPermissionsEgress: []ec2types.IpPermission{
				{IpProtocol: aws.String("-1")},
			},
		}},
	}
	watcher := securitygroups.NewWatcher(f)

	if err := watcher.RevokeRules(context.Background(), "sg-task"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.revokedIngress) != 2 {
		t.Errorf("expected 2 revoked ingress rules, got %d", len(f.revokedIngress))
	}
	if len(f.revokedEgress) != 1 {
		t.Errorf("expected 1 revoked egress rule, got %d", len(f.revokedEgress))
	}
}

func TestRevokeRulesNoRules(t *testing.T) {
	f := &fakeEC2{
		groups: []ec2types.SecurityGroup{{GroupId: aws.String("sg-task"), GroupName: aws.String("task-sg")}},
	}
	watcher := securitygroups.NewWatcher(f)

	if err := watcher.RevokeRules(context.Background(), "sg-task"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, call := range f.calls {
		if call == "RevokeSecurityGroupIngress" || call == "RevokeSecurityGroupEgress" {
			t.Errorf("unexpected revoke call %q for a group with no rules", call)
		}
	}
}

func TestRevokeRulesGroupGone(t *testing.T) {
	f := &fakeEC2{}
	watcher := securitygroups.NewWatcher(f)

	if err := watcher.RevokeRules(context.Background(), "sg-missing"); err != nil {
		t.Fatalf("expected nil for a group that no longer exists, got %v", err)
	}
}
