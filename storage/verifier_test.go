package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nq-deploy/deployctl/environment"
)

func TestVerify_HeadBucketWhenBucketSet(t *testing.T) {
	client := NewMockS3Client()
	verifier := NewVerifier(client, "mushaf-media")

	require.NoError(t, verifier.Verify(context.Background()))
	assert.True(t, client.HeadBucketCalled)
	assert.Equal(t, "mushaf-media", client.LastBucket)
	assert.False(t, client.ListBucketsCalled)
}

func TestVerify_ListBucketsWithoutBucket(t *testing.T) {
	client := NewMockS3Client()
	verifier := NewVerifier(client, "")

	require.NoError(t, verifier.Verify(context.Background()))
	assert.True(t, client.ListBucketsCalled)
	assert.False(t, client.HeadBucketCalled)
}

func TestVerify_PropagatesError(t *testing.T) {
	client := NewMockS3Client()
	client.Err = errors.New("403 Forbidden")

	verifier := NewVerifier(client, "mushaf-media")
	assert.Error(t, verifier.Verify(context.Background()))
}

func TestNewVerifierFromStore_SkipsPlaceholders(t *testing.T) {
	store := environment.NewFromValues(map[string]string{
		environment.KeyS3Endpoint:  environment.PlaceholderS3Endpoint,
		environment.KeyS3AccessKey: environment.PlaceholderS3AccessKey,
		environment.KeyS3SecretKey: environment.PlaceholderS3SecretKey,
	})

	verifier, err := NewVerifierFromStore(context.Background(), store, "")
	require.NoError(t, err)
	assert.Nil(t, verifier)
}

func TestNewVerifierFromStore_BuildsClientForRealValues(t *testing.T) {
	store := environment.NewFromValues(map[string]string{
		environment.KeyS3Endpoint:  "https://minio.internal:9000",
		environment.KeyS3AccessKey: "AKIAEXAMPLE",
		environment.KeyS3SecretKey: "secret",
	})

	verifier, err := NewVerifierFromStore(context.Background(), store, "mushaf-media")
	require.NoError(t, err)
	assert.NotNil(t, verifier)
}
