package transport

import (
	"bytes"
	"context"
	"encoding/hex"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinIO uploads clips with the minio-go client.
type MinIO struct {
	client   *minio.Client
	bucket   string
	deviceID string
}

func NewMinIO(cfg MinIOConfig, deviceID string) (*MinIO, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		// a fixed region skips the bucket location lookup
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	return &MinIO{client: client, bucket: cfg.Bucket, deviceID: deviceID}, nil
}

func (t *MinIO) Send(ctx context.Context, p Payload) error {
	key := ObjectKey(t.deviceID, p)

	_, err := t.client.PutObject(ctx, t.bucket, key,
		bytes.NewReader(p.Data), int64(len(p.Data)),
		minio.PutObjectOptions{
			ContentType: p.ContentType,
			UserMetadata: map[string]string{
				"clip-id": strconv.FormatInt(p.ClipID, 10),
				"digest":  hex.EncodeToString(p.Digest),
			},
		})
	if err != nil {
		return transferErr(err)
	}
	return nil
}
