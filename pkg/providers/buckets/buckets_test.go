package buckets_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/freetier/reaper/pkg/providers/buckets"
)

type fakeS3 struct {
	calls         []string
	buckets       []s3types.Bucket
	pages         []*s3.ListObjectVersionsOutput
	deleteBatches [][]s3types.ObjectIdentifier
}

func (f *fakeS3) ListBuckets(_ context.Context, _ *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	f.calls = append(f.calls, "ListBuckets")
	return &s3.ListBucketsOutput{Buckets: f.buckets}, nil
}

func (f *fakeS3) ListObjectVersions(_ context.Context, _ *s3.ListObjectVersionsInput, _ ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	f.calls = append(f.calls, "ListObjectVersions")
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, params *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.calls = append(f.calls, "DeleteObjects")
	f.deleteBatches = append(f.deleteBatches, params.Delete.Objects)
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) DeleteBucket(_ context.Context, _ *s3.DeleteBucketInput, _ ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	f.calls = append(f.calls, "DeleteBucket")
	return &s3.DeleteBucketOutput{}, nil
}

func TestResolve(t *testing.T) {
	f := &fakeS3{
		buckets: []s3types.Bucket{
			{Name: aws.String("task-artifacts")},
			{Name: aws.String("prod-backups")},
			{Name: aws.String("my-Task-data")},
		},
	}
	watcher := buckets.NewWatcher(f)

	resolved, err := watcher.Resolve(context.Background(), []string{"task"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("expected 2 matching buckets, got %v", resolved)
	}
	if *resolved[0].Name != "task-artifacts" || *resolved[1].Name != "my-Task-data" {
		t.Errorf("unexpected buckets resolved: %v", resolved)
	}
}

// Versioned buckets must be fully purged, delete markers included, across
// every truncated page before the bucket itself can go.
func TestEmptyPurgesAllVersions(t *testing.T) {
	f := &fakeS3{
		pages: []*s3.ListObjectVersionsOutput{
			{
				Versions: []s3types.ObjectVersion{
					{Key: aws.String("a.txt"), VersionId: aws.String("v1")},
					{Key: aws.String("a.txt"), VersionId: aws.String("v2")},
				},
				IsTruncated:         aws.Bool(true),
				NextKeyMarker:       aws.String("a.txt"),
				NextVersionIdMarker: aws.String("v2"),
			},
			{
				Versions: []s3types.ObjectVersion{
					{Key: aws.String("b.txt"), VersionId: aws.String("v1")},
				},
				DeleteMarkers: []s3types.DeleteMarkerEntry{
					{Key: aws.String("c.txt"), VersionId: aws.String("v1")},
					{Key: aws.String("c.txt"), VersionId: aws.String("v2")},
				},
				IsTruncated: aws.Bool(false),
			},
		},
	}
	watcher := buckets.NewWatcher(f)

	purged, err := watcher.Empty(context.Background(), "task-artifacts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 5 {
		t.Errorf("expected 5 purged entries, got %d", purged)
	}
	if len(f.deleteBatches) != 2 {
		t.Fatalf("expected 2 delete batches, got %d", len(f.deleteBatches))
	}
	if len(f.deleteBatches[0]) != 2 || len(f.deleteBatches[1]) != 3 {
		t.Errorf("unexpected batch sizes: %d and %d", len(f.deleteBatches[0]), len(f.deleteBatches[1]))
	}
}

func TestEmptyBucketWithNoContents(t *testing.T) {
	f := &fakeS3{
		pages: []*s3.ListObjectVersionsOutput{{IsTruncated: aws.Bool(false)}},
	}
	watcher := buckets.NewWatcher(f)

	purged, err := watcher.Empty(context.Background(), "task-artifacts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purged != 0 {
		t.Errorf("expected 0 purged entries, got %d", purged)
	}
	for _, call := range f.calls {
		if call == "DeleteObjects" {
			t.Error("DeleteObjects should not be called for an empty bucket")
		}
	}
}
