package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockS3Client is a mock implementation of S3Client for testing
type MockS3Client struct {
	// Buckets stores the bucket names the mock knows about
	Buckets map[string]bool
	// Error to return from operations
	Err error
	// Track function calls
	HeadBucketCalled  bool
	ListBucketsCalled bool
	// Store last call parameters
	LastBucket string
}

// NewMockS3Client creates a new mock S3 client
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{Buckets: make(map[string]bool)}
}

// HeadBucket mocks checking bucket existence
func (m *MockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	m.HeadBucketCalled = true
	if params.Bucket != nil {
		m.LastBucket = *params.Bucket
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &s3.HeadBucketOutput{}, nil
}

// ListBuckets mocks listing buckets
func (m *MockS3Client) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	m.ListBucketsCalled = true
	if m.Err != nil {
		return nil, m.Err
	}
	buckets := make([]types.Bucket, 0, len(m.Buckets))
	for name := range m.Buckets {
		n := name
		buckets = append(buckets, types.Bucket{Name: &n})
	}
	return &s3.ListBucketsOutput{Buckets: buckets}, nil
}
