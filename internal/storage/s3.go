package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pulsefit/workout-app/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// s3Archive implements the SummaryArchive interface using an S3-compatible
// backend (AWS S3, MinIO, DigitalOcean Spaces).
type s3Archive struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
}

// NewS3Archive creates a new S3-backed summary archive.
func NewS3Archive(cfg config.S3Config) (SummaryArchive, error) {
	// Custom resolver for S3-compatible endpoints (like MinIO).
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(context.TODO(),
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsCfg.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS SDK config: %w", err)
	}

	// Path-style addressing is required by most S3-compatible services.
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	presignClient := s3.NewPresignClient(s3Client)

	log.WithFields(log.Fields{
		"endpoint": cfg.Endpoint,
		"bucket":   cfg.BucketName,
	}).Info("summary archive initialized")

	return &s3Archive{
		client:        s3Client,
		presignClient: presignClient,
		bucketName:    cfg.BucketName,
	}, nil
}

// ArchiveSessionSummary uploads the summary document as JSON and returns a
// presigned download URL for it.
func (s *s3Archive) ArchiveSessionSummary(ctx context.Context, doc SessionSummaryDocument) (string, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary document: %w", err)
	}

	// Keyed by user and session, with a uuid suffix so a re-finalized
	// legacy row never overwrites an earlier archive.
	objectKey := fmt.Sprintf("summaries/%s/%s-%s.json", doc.UserID, doc.SessionID, uuid.NewString())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload summary %q: %w", objectKey, err)
	}

	return s.GeneratePresignedDownloadURL(ctx, objectKey, DefaultPresignedURLExpiry)
}

// GeneratePresignedDownloadURL creates a temporary URL for downloading (GET).
func (s *s3Archive) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign download for %q: %w", objectKey, err)
	}
	return req.URL, nil
}
