package routetables

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// Watcher discovers route tables matching the reap patterns
type Watcher struct {
	routeTableAPI SDKRouteTablesOps
}

// SDKRouteTablesOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKRouteTablesOps interface {
	ec2.DescribeRouteTablesAPIClient
	DisassociateRouteTable(context.Context, *ec2.DisassociateRouteTableInput, ...func(*ec2.Options)) (*ec2.DisassociateRouteTableOutput, error)
	DeleteRouteTable(context.Context, *ec2.DeleteRouteTableInput, ...func(*ec2.Options)) (*ec2.DeleteRouteTableOutput, error)
}

// RouteTable represent an AWS RouteTable
// This is not the AWS SDK RouteTable type, but a wrapper around it so that we can add additional data
type RouteTable struct {
	ec2types.RouteTable
	Label string
}

// NewWatcher creates a new RouteTable Watcher
func NewWatcher(routeTableAPI SDKRouteTablesOps) Watcher {
	return Watcher{
		routeTableAPI: routeTableAPI,
	}
}

// IsMain reports whether the table carries its VPC's main association.
// The main route table cannot be disassociated or deleted.
func (rt RouteTable) IsMain() bool {
	return lo.SomeBy(rt.Associations, func(association ec2types.RouteTableAssociation) bool {
		return lo.FromPtr(association.Main)
	})
}

// Resolve returns non-main route tables whose Name tag or tags match any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]RouteTable, error) {
	var routeTables []RouteTable
	pager := ec2.NewDescribeRouteTablesPaginator(w.routeTableAPI, &ec2.DescribeRouteTablesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe route tables: %w", err)
		}
		for _, sdkRouteTable := range page.RouteTables {
			routeTable := RouteTable{sdkRouteTable, ""}
			if routeTable.IsMain() {
				continue
			}
			if label, ok := patterns.Match(tagutils.Name(sdkRouteTable.Tags), tagutils.EC2TagsToMap(sdkRouteTable.Tags), patternList); ok {
				routeTable.Label = label
				routeTables = append(routeTables, routeTable)
			}
		}
	}
	return routeTables, nil
}

// Delete disassociates the table's non-main associations and deletes it.
// Main associations are skipped; the control plane rejects disassociating them.
func (w Watcher) Delete(ctx context.Context, routeTable RouteTable) error {
	for _, association := range routeTable.Associations {
		if lo.FromPtr(association.Main) {
			continue
		}
		if _, err := w.routeTableAPI.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{
			AssociationId: association.RouteTableAssociationId,
		}); err != nil {
			return err
		}
	}
	_, err := w.routeTableAPI.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: routeTable.RouteTableId})
	return err
}
