package buckets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers S3 buckets matching the reap patterns
type Watcher struct {
	s3API SDKBucketsOps
}

// SDKBucketsOps is an interface that combines the necessary S3 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKBucketsOps interface {
	ListBuckets(context.Context, *s3.ListBucketsInput, ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectVersions(context.Context, *s3.ListObjectVersionsInput, ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(context.Context, *s3.DeleteObjectsInput, ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	DeleteBucket(context.Context, *s3.DeleteBucketInput, ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

// Bucket represents an S3 bucket
// This is not the AWS SDK Bucket type, but a wrapper around it so that we can add additional data
type Bucket struct {
	s3types.Bucket
	Label string
}

// NewWatcher creates a new Bucket Watcher
func NewWatcher(s3API SDKBucketsOps) Watcher {
	return Watcher{
		s3API: s3API,
	}
}

// Resolve returns buckets whose name matches any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Bucket, error) {
	out, err := w.s3API.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	var buckets []Bucket
	for _, sdkBucket := range out.Buckets {
		if label, ok := patterns.Match(lo.FromPtr(sdkBucket.Name), nil, patternList); ok {
			buckets = append(buckets, Bucket{sdkBucket, label})
		}
	}
	return buckets, nil
}

// Empty deletes every object version and delete marker in the bucket and
// returns the number of entries removed. Versioned buckets reject deletion
// while any version remains, so current objects alone are not enough.
func (w Watcher) Empty(ctx context.Context, bucketName string) (int, error) {
	deleted := 0
	var keyMarker, versionIDMarker *string
	for {
		page, err := w.s3API.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          &bucketName,
			KeyMarker:       keyMarker,
			VersionIdMarker: versionIDMarker,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to list object versions for bucket %s: %w", bucketName, err)
		}
		entries := lo.Map(page.Versions, func(version s3types.ObjectVersion, _ int) s3types.ObjectIdentifier {
			return s3types.ObjectIdentifier{Key: version.Key, VersionId: version.VersionId}
		})
		entries = append(entries, lo.Map(page.DeleteMarkers, func(marker s3types.DeleteMarkerEntry, _ int) s3types.ObjectIdentifier {
			return s3types.ObjectIdentifier{Key: marker.Key, VersionId: marker.VersionId}
		})...)
		if len(entries) > 0 {
			if _, err := w.s3API.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: &bucketName,
				Delete: &s3types.Delete{
					Objects: entries,
					Quiet:   aws.Bool(true),
				},
			}); err != nil {
				return deleted, fmt.Errorf("failed to delete objects from bucket %s: %w", bucketName, err)
			}
			deleted += len(entries)
		}
		if !lo.FromPtr(page.IsTruncated) {
			return deleted, nil
		}
		keyMarker = page.NextKeyMarker
		versionIDMarker = page.NextVersionIdMarker
	}
}

func (w Watcher) Delete(ctx context.Context, bucketName string) error {
	_, err := w.s3API.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: &bucketName})
	return err
}
