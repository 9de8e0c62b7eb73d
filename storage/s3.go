package storage

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/aodn/pipeline/common/stats"
	"github.com/aodn/pipeline/pipelineerr"
	"gopkg.in/amz.v1/aws"
	"gopkg.in/amz.v1/s3"
)

var bytesUploadedCounter = stats.NewStat("bytes_uploaded")

// S3StorageBroker is the store sink, grounded directly on the teacher's
// api/artifacthandler.go: PutArtifact's bucket.PutReader, GetArtifactContent's
// s3bucket.GetReader, MergeLogChunks's s3bucket.PutReader. The teacher's own
// AWS wiring (gopkg.in/amz.v1) is reused rather than swapped for a newer SDK.
type S3StorageBroker struct {
	bucket *s3.Bucket
}

// NewS3StorageBroker builds a broker for s3://bucket-name/prefix, using
// credentials from the process environment the way server.go's own AWS
// wiring does (aws.EnvAuth).
func NewS3StorageBroker(u *url.URL) (*S3StorageBroker, error) {
	auth, err := aws.EnvAuth()
	if err != nil {
		return nil, pipelineerr.WrapInvalidInput(err)
	}

	region := aws.USEast
	if r := os.Getenv("AWS_REGION"); r != "" {
		if reg, ok := aws.Regions[r]; ok {
			region = reg
		}
	}

	conn := s3.New(auth, region)
	return &S3StorageBroker{bucket: conn.Bucket(u.Host)}, nil
}

func (b *S3StorageBroker) Scheme() string { return "s3" }

func (b *S3StorageBroker) key(remotePath string) string {
	return strings.TrimPrefix(remotePath, "/")
}

func (b *S3StorageBroker) Put(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return pipelineerr.WrapSinkPermanent(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return pipelineerr.WrapSinkPermanent(err)
	}

	if err := b.bucket.PutReader(b.key(remotePath), f, info.Size(), "binary/octet-stream", s3.Private); err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	bytesUploadedCounter.Add(info.Size())
	return nil
}

func (b *S3StorageBroker) Delete(ctx context.Context, remotePath string) error {
	if err := b.bucket.Del(b.key(remotePath)); err != nil {
		return pipelineerr.WrapSinkTransient(err)
	}
	return nil
}

func (b *S3StorageBroker) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := b.bucket.GetKey(b.key(remotePath))
	if err != nil {
		if s3Err, ok := err.(*s3.Error); ok && s3Err.StatusCode == 404 {
			return false, nil
		}
		return false, pipelineerr.WrapSinkTransient(err)
	}
	return true, nil
}
