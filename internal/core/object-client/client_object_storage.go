package objectclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-hclog"

	cfg "github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var _ core.ObjectClient = (*S3Client)(nil)

// S3Client fetches documents from S3 or an S3-compatible store.
type S3Client struct {
	client   *s3.Client
	region   string
	bucket   string
	maxBytes int64
	log      hclog.Logger
}

func NewS3Client(ctx context.Context, cfg *cfg.Config, log hclog.Logger) (*S3Client, error) {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil, fmt.Errorf("AWS credentials not set")
	}
	if cfg.AwsRegion == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.S3Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	log = logging.OrNull(log)
	log.Info("configured object storage", "region", cfg.AwsRegion, "bucket", cfg.BucketName, "endpoint", endpoint)

	return &S3Client{
		client:   client,
		region:   cfg.AwsRegion,
		bucket:   cfg.BucketName,
		maxBytes: cfg.MaxUploadBytes,
		log:      log,
	}, nil
}

// DefaultBucket is the bucket used when a request names none.
func (c *S3Client) DefaultBucket() string { return c.bucket }

// GetFile downloads one object. Objects larger than the upload limit are rejected before download.
func (c *S3Client) GetFile(ctx context.Context, bucket, key string) (*models.StoredObject, error) {
	if bucket == "" {
		bucket = c.bucket
	}
	if bucket == "" || key == "" {
		return nil, core.InputRejected("bucket and key are required")
	}

	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	head, err := c.client.HeadObject(ctxGet, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 head failed: %w", err)
	}
	size := aws.ToInt64(head.ContentLength)
	if c.maxBytes > 0 && size > c.maxBytes {
		return nil, core.InputRejected("object %s is %d bytes, limit is %d", key, size, c.maxBytes).
			WithCode(core.CodeFileTooLarge)
	}

	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
	downloader := manager.NewDownloader(c.client)
	n, err := downloader.Download(ctxGet, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	c.log.Debug("downloaded object", "bucket", bucket, "key", key, "bytes", n)

	return &models.StoredObject{
		Bucket:      bucket,
		Key:         key,
		Data:        buf.Bytes()[:n],
		ContentType: aws.ToString(head.ContentType),
	}, nil
}
