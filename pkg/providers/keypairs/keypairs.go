package keypairs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// Watcher discovers EC2 key pairs matching the reap patterns
type Watcher struct {
	keyPairAPI SDKKeyPairOps
}

// SDKKeyPairOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKKeyPairOps interface {
	DescribeKeyPairs(context.Context, *ec2.DescribeKeyPairsInput, ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
	DeleteKeyPair(context.Context, *ec2.DeleteKeyPairInput, ...func(*ec2.Options)) (*ec2.DeleteKeyPairOutput, error)
}

// KeyPair represents an EC2 key pair
// This is not the AWS SDK KeyPairInfo type, but a wrapper around it so that we can add additional data
type KeyPair struct {
	ec2types.KeyPairInfo
	Label string
}

// NewWatcher creates a new KeyPair Watcher
func NewWatcher(keyPairAPI SDKKeyPairOps) Watcher {
	return Watcher{
		keyPairAPI: keyPairAPI,
	}
}

// Resolve returns key pairs whose name or tags match any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]KeyPair, error) {
	out, err := w.keyPairAPI.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe key pairs: %w", err)
	}
	var keyPairs []KeyPair
	for _, sdkKeyPair := range out.KeyPairs {
		if label, ok := patterns.Match(lo.FromPtr(sdkKeyPair.KeyName), tagutils.EC2TagsToMap(sdkKeyPair.Tags), patternList); ok {
			keyPairs = append(keyPairs, KeyPair{sdkKeyPair, label})
		}
	}
	return keyPairs, nil
}

func (w Watcher) Delete(ctx context.Context, keyName string) error {
	_, err := w.keyPairAPI.DeleteKeyPair(ctx, &ec2.DeleteKeyPairInput{KeyName: &keyName})
	return err
}
