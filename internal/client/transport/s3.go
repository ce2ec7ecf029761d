package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/clipvault/internal/netx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

type S3Config struct {
	Region        string
	AccessKey     string
	SecretKey     string
	BaseEndpoint  string
	Bucket        string
	PresignExpiry time.Duration
	UsePathStyle  bool
}

// S3 presigns a PUT for every clip and uploads the bytes over plain HTTP.
type S3 struct {
	cfg      S3Config
	deviceID string
	http     *http.Client

	mu      sync.Mutex
	presign *s3.PresignClient
}

func NewS3(cfg S3Config, deviceID string, httpClient *http.Client) *S3 {
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}
	return &S3{cfg: cfg, deviceID: deviceID, http: httpClient}
}

func (t *S3) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.presign != nil {
		return t.presign, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(t.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			t.cfg.AccessKey,
			t.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if t.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(t.cfg.BaseEndpoint)
		}
		o.UsePathStyle = t.cfg.UsePathStyle
	})

	t.presign = newS3PresignClient(client)
	return t.presign, nil
}

func (t *S3) Send(ctx context.Context, p Payload) error {
	pc, err := t.presignClient(ctx)
	if err != nil {
		return transferErr(err)
	}

	bucket := t.cfg.Bucket
	key := ObjectKey(t.deviceID, p)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(p.ContentType),
	}, s3.WithPresignExpires(t.cfg.PresignExpiry))
	if err != nil {
		return transferErr(err)
	}

	if err := netx.UploadToPresignedURL(ctx, t.http, req.URL, p.ContentType, p.Data); err != nil {
		return transferErr(err)
	}
	return nil
}
