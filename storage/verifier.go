// Package storage verifies the object-storage credentials carried in the
// environment file. The application offloads uploaded mushaf archives to an
// S3-compatible store; a typo in the credentials otherwise only surfaces on
// the first upload, long after the deployment run finished.
package storage

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/environment"
)

// Verifier checks that the configured S3 credentials can reach the store.
type Verifier struct {
	client S3Client
	bucket string
}

// NewVerifier creates a verifier over an existing client. Pass bucket "" to
// only check that the credentials can list buckets.
func NewVerifier(client S3Client, bucket string) *Verifier {
	return &Verifier{client: client, bucket: bucket}
}

// NewVerifierFromStore builds an S3 client from the environment store's
// storage fields. It returns nil when the fields still carry their
// placeholders, meaning the operator has not set up object storage yet.
func NewVerifierFromStore(ctx context.Context, store *environment.Store, bucket string) (*Verifier, error) {
	endpoint := store.Get(environment.KeyS3Endpoint)
	access := store.Get(environment.KeyS3AccessKey)
	secret := store.Get(environment.KeyS3SecretKey)

	if endpoint == environment.PlaceholderS3Endpoint ||
		access == environment.PlaceholderS3AccessKey ||
		secret == environment.PlaceholderS3SecretKey {
		return nil, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(access, secret, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // required for MinIO
		o.HTTPClient = &http.Client{}
	})
	return &Verifier{client: client, bucket: bucket}, nil
}

// Verify checks the credentials against the store. The result is advisory:
// the caller logs a warning on failure and carries on, because object
// storage is optional for a fresh install.
func (v *Verifier) Verify(ctx context.Context) error {
	if v.bucket != "" {
		_, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
		return err
	}
	_, err := v.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	return err
}

// VerifyStore runs a credential check for the given store and reports the
// outcome through the logger. Placeholder credentials are skipped silently.
func VerifyStore(ctx context.Context, store *environment.Store, bucket string) {
	verifier, err := NewVerifierFromStore(ctx, store, bucket)
	if err != nil {
		common.Logger.WithField("error", err).Warn("could not build object storage client")
		return
	}
	if verifier == nil {
		common.Logger.Debug("object storage credentials not configured, skipping check")
		return
	}
	if err := verifier.Verify(ctx); err != nil {
		common.Logger.WithField("error", err).Warn("object storage credentials failed verification")
		return
	}
	common.Logger.Info("object storage credentials verified")
}
