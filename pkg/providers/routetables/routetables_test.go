package routetables_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/providers/routetables"
)

type fakeEC2 struct {
	routeTables   []ec2types.RouteTable
	disassociated []string
	deleted       []string
}

func (f *fakeEC2) DescribeRouteTables(_ context.Context, _ *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	return &ec2.DescribeRouteTablesOutput{RouteTables: f.routeTables}, nil
}

func (f *fakeEC2) DisassociateRouteTable(_ context.Context, params *ec2.DisassociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.DisassociateRouteTableOutput, error) {
	f.disassociated = append(f.disassociated, *params.AssociationId)
	return &ec2.DisassociateRouteTableOutput{}, nil
}

func (f *fakeEC2) DeleteRouteTable(_ context.Context, params *ec2.DeleteRouteTableInput, _ ...func(*ec2.Options)) (*ec2.DeleteRouteTableOutput, error) {
	f.deleted = append(f.deleted, *params.RouteTableId)
	return &ec2.DeleteRouteTableOutput{}, nil
}

func taskTags() []ec2types.Tag {
	return []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("task-rt")}}
}

// The VPC's main route table cannot be deleted and must never be selected,
// even when its tags match.
func TestResolveSkipsMainTable(t *testing.T) {
	f := &fakeEC2{
		routeTables: []ec2types.RouteTable{
			{
				RouteTableId: aws.String("rtb-main"),
				Tags:         taskTags(),
				Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(true)}},
			},
			{
				RouteTableId: aws.String("rtb-custom"),
				Tags:         taskTags(),
				Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(false)}},
			},
		},
	}
	watcher := routetables.NewWatcher(f)

	resolved, err := watcher.Resolve(context.Background(), []string{"task"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 route table, got %v", resolved)
	}
	if *resolved[0].RouteTableId != "rtb-custom" {
		t.Errorf("expected rtb-custom, got %s", *resolved[0].RouteTableId)
	}
}

func TestDeleteDisassociatesNonMainOnly(t *testing.T) {
	f := &fakeEC2{}
	watcher := routetables.NewWatcher(f)
	routeTable := routetables.RouteTable{
		RouteTable: ec2types.RouteTable{
			RouteTableId: aws.String("rtb-custom"),
			Associations: []ec2types.RouteTableAssociation{
				{Main: aws.Bool(true), RouteTableAssociationId: aws.String("rtbassoc-main")},
				{Main: aws.Bool(false), RouteTableAssociationId: aws.String("rtbassoc-subnet")},
			},
		},
	}

	if err := watcher.Delete(context.Background(), routeTable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.disassociated) != 1 || f.disassociated[0] != "rtbassoc-subnet" {
		t.Errorf("expected only rtbassoc-subnet disassociated, got %v", f.disassociated)
	}
	if len(f.deleted) != 1 || f.deleted[0] != "rtb-custom" {
		t.Errorf("expected rtb-custom deleted, got %v", f.deleted)
	}
}

func TestIsMain(t *testing.T) {
	main := routetables.RouteTable{
		RouteTable: ec2types.RouteTable{
			Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(true)}},
		},
	}
	if !main.IsMain() {
		t.Error("expected main table to report IsMain")
	}
	custom := routetables.RouteTable{
		RouteTable: ec2types.RouteTable{
			Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(false)}},
		},
	}
	if custom.IsMain() {
		t.Error("expected custom table to not report IsMain")
	}
}
