package functions

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers Lambda functions and layers matching the reap patterns
type Watcher struct {
	lambdaAPI SDKFunctionsOps
}

// SDKFunctionsOps is an interface that combines the necessary Lambda SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKFunctionsOps interface {
	lambda.ListFunctionsAPIClient
	lambda.ListLayersAPIClient
	lambda.ListLayerVersionsAPIClient
	DeleteFunction(context.Context, *lambda.DeleteFunctionInput, ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
	DeleteLayerVersion(context.Context, *lambda.DeleteLayerVersionInput, ...func(*lambda.Options)) (*lambda.DeleteLayerVersionOutput, error)
}

// Function represents a Lambda function
// This is not the AWS SDK FunctionConfiguration type, but a wrapper around it so that we can add additional data
type Function struct {
	lambdatypes.FunctionConfiguration
	Label string
}

// Layer represents a versioned Lambda layer
// This is not the AWS SDK LayersListItem type, but a wrapper around it so that we can add additional data
type Layer struct {
	lambdatypes.LayersListItem
	Label string
}

// NewWatcher creates a new Function Watcher
func NewWatcher(lambdaAPI SDKFunctionsOps) Watcher {
	return Watcher{
		lambdaAPI: lambdaAPI,
	}
}

// Resolve returns functions whose name matches any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Function, error) {
	var functions []Function
	pager := lambda.NewListFunctionsPaginator(w.lambdaAPI, &lambda.ListFunctionsInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, sdkFunction := range page.Functions {
			if label, ok := patterns.Match(lo.FromPtr(sdkFunction.FunctionName), nil, patternList); ok {
				functions = append(functions, Function{sdkFunction, label})
			}
		}
	}
	return functions, nil
}

// ResolveLayers returns layers whose name matches any pattern
func (w Watcher) ResolveLayers(ctx context.Context, patternList []string) ([]Layer, error) {
	var layers []Layer
	pager := lambda.NewListLayersPaginator(w.lambdaAPI, &lambda.ListLayersInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list layers: %w", err)
		}
		for _, sdkLayer := range page.Layers {
			if label, ok := patterns.Match(lo.FromPtr(sdkLayer.LayerName), nil, patternList); ok {
				layers = append(layers, Layer{sdkLayer, label})
			}
		}
	}
	return layers, nil
}

func (w Watcher) Delete(ctx context.Context, functionName string) error {
	_, err := w.lambdaAPI.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: &functionName})
	return err
}

// DeleteLayer deletes every version of the layer. Layers have no
// delete-all call; each version is removed individually.
func (w Watcher) DeleteLayer(ctx context.Context, layer Layer) error {
	pager := lambda.NewListLayerVersionsPaginator(w.lambdaAPI, &lambda.ListLayerVersionsInput{LayerName: layer.LayerName})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list versions for layer %s: %w", lo.FromPtr(layer.LayerName), err)
		}
		for _, version := range page.LayerVersions {
			if _, err := w.lambdaAPI.DeleteLayerVersion(ctx, &lambda.DeleteLayerVersionInput{
				LayerName:     layer.LayerName,
				VersionNumber: &version.Version,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
