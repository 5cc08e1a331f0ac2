package igws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
)

// Watcher discovers Internet Gateways matching the reap patterns
type Watcher struct {
	ec2API SDKIGWOps
}

// SDKIGWOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKIGWOps interface {
	ec2.DescribeInternetGatewaysAPIClient
	DetachInternetGateway(context.Context, *ec2.DetachInternetGatewayInput, ...func(*ec2.Options)) (*ec2.DetachInternetGatewayOutput, error)
	DeleteInternetGateway(context.Context, *ec2.DeleteInternetGatewayInput, ...func(*ec2.Options)) (*ec2.DeleteInternetGatewayOutput, error)
}

// InternetGateway represent an AWS Internet Gateway
// This is not the AWS SDK InternetGateway type, but a wrapper around it so that we can add additional data
type InternetGateway struct {
	ec2types.InternetGateway
	Label string
}

// NewWatcher creates a new InternetGateway Watcher
func NewWatcher(ec2API SDKIGWOps) Watcher {
	return Watcher{
		ec2API: ec2API,
	}
}

// Resolve returns Internet Gateways whose Name tag or tags match any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]InternetGateway, error) {
	var igws []InternetGateway
	pager := ec2.NewDescribeInternetGatewaysPaginator(w.ec2API, &ec2.DescribeInternetGatewaysInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe Internet Gateways: %w", err)
		}
		for _, sdkIGW := range page.InternetGateways {
			if label, ok := patterns.Match(tagutils.Name(sdkIGW.Tags), tagutils.EC2TagsToMap(sdkIGW.Tags), patternList); ok {
				igws = append(igws, InternetGateway{sdkIGW, label})
			}
		}
	}
	return igws, nil
}

// Delete detaches the gateway from every attached VPC before deleting it.
// A gateway cannot be deleted while attached.
func (w Watcher) Delete(ctx context.Context, igw InternetGateway) error {
	for _, attachment := range igw.Attachments {
		if _, err := w.ec2API.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
			InternetGatewayId: igw.InternetGatewayId,
			VpcId:             attachment.VpcId,
		}); err != nil {
			return err
		}
	}
	_, err := w.ec2API.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: igw.InternetGatewayId,
	})
	return err
}
