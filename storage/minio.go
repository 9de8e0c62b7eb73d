package storage

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/aodn/pipeline/pipelineerr"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorageBroker is the archive sink. Enrichment drawn from the
// example pack's use of github.com/minio/minio-go/v7: using a second,
// independently-configured S3-compatible client for the cold-archive tier
// keeps archive and store failure domains distinct, per spec.md §4.5's
// "best-effort parallel durability" language.
type MinioStorageBroker struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorageBroker builds a broker for minio://host/bucket-name (or
// minios:// for TLS): the bucket is the URI path, and the endpoint is
// MINIO_ENDPOINT, or the URI host when that is unset. Credentials come from
// the MINIO_ACCESS_KEY and MINIO_SECRET_KEY environment variables.
func NewMinioStorageBroker(u *url.URL) (*MinioStorageBroker, error) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = u.Host
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: u.Scheme == "minios",
	})
	if err != nil {
		return nil, pipelineerr.WrapInvalidInput(err)
	}

	return &MinioStorageBroker{client: cli, bucketName: strings.TrimPrefix(u.Path, "/")}, nil
}

func (b *MinioStorageBroker) Scheme() string { return "minio" }

func (b *MinioStorageBroker) key(remotePath string) string {
	return strings.TrimPrefix(remotePath, "/")
}

func (b *MinioStorageBroker) Put(ctx context.Context, localPath, remotePath string) error {
	info, err := b.client.FPutObject(ctx, b.bucketName, b.key(remotePath), localPath, minio.PutObjectOptions{
		ContentType: "binary/octet-stream",
	})
	if err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	bytesUploadedCounter.Add(info.Size)
	return nil
}

func (b *MinioStorageBroker) Delete(ctx context.Context, remotePath string) error {
	err := b.client.RemoveObject(ctx, b.bucketName, b.key(remotePath), minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

func (b *MinioStorageBroker) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucketName, b.key(remotePath), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return false, nil
		}
		return false, pipelineerr.WrapSinkTransient(err)
	}
	return true, nil
}
