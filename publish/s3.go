package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/alitto/pond"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/schollz/progressbar/v3"
)

type S3Publisher struct {
	input *S3PublisherInput
	s3    *s3.Client
}

type S3PublisherInput struct {
	AwsConfig aws.Config
	Bucket    string

	// Key prefix for this run, e.g. "runs/2026-08-25".
	Prefix string

	UploadConcurrency int
}

func NewS3Publisher(input *S3PublisherInput) *S3Publisher {
	if input.UploadConcurrency == 0 {
		input.UploadConcurrency = 8
	}
	return &S3Publisher{
		input: input,
		s3:    s3.NewFromConfig(input.AwsConfig),
	}
}

func (p *S3Publisher) SetUp() error {
	_, err := p.s3.CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: &p.input.Bucket,
		ACL:    s3Types.BucketCannedACLPrivate,
		CreateBucketConfiguration: &s3Types.CreateBucketConfiguration{
			LocationConstraint: s3Types.BucketLocationConstraint(p.input.AwsConfig.Region),
		},
	})
	var e *s3Types.BucketAlreadyOwnedByYou
	if errors.As(err, &e) {
		// this is fine, we'll just upload to it
		slog.Debug("bucket already exists", slog.String("name", p.input.Bucket))
		return nil
	} else if err != nil {
		return err
	}
	slog.Debug("created bucket", slog.String("name", p.input.Bucket))
	return nil
}

// Upload sends the given files to the bucket under Prefix, keyed by base
// name. Large flame graphs go through the multipart uploader.
func (p *S3Publisher) Upload(paths []string) error {
	slog.Info("uploading results", slog.String("bucket", p.input.Bucket), slog.String("prefix", p.input.Prefix))
	uploader := manager.NewUploader(p.s3, func(u *manager.Uploader) {
		u.PartSize = 1024 * 1024 * 10
	})
	errChan := make(chan error, len(paths))
	pool := pond.New(p.input.UploadConcurrency, 0, pond.MinWorkers(p.input.UploadConcurrency))
	bar := progressbar.Default(int64(len(paths)), "Uploading results:")
	for _, filePath := range paths {
		pool.Submit(func() {
			defer bar.Add(1)

			f, err := os.Open(filePath)
			if err != nil {
				slog.Error("failed to open result file", slog.String("path", filePath), slog.String("error", err.Error()))
				errChan <- err
				return
			}
			defer f.Close()

			key := path.Join(p.input.Prefix, filepath.Base(filePath))
			_, err = uploader.Upload(context.Background(), &s3.PutObjectInput{
				Bucket: &p.input.Bucket,
				Key:    &key,
				Body:   f,
			})
			if err != nil {
				slog.Error("failed to upload result file", slog.String("key", key), slog.String("error", err.Error()))
				errChan <- err
				return
			}
		})
	}
	pool.StopAndWait()
	bar.Finish()

	select {
	case err := <-errChan:
		return fmt.Errorf("some result files failed to upload: %w", err)
	default:
		slog.Info("done uploading", slog.String("bucket", p.input.Bucket))
		return nil
	}
}
