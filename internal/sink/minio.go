package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
)

// ObjectAPI is the subset of the MinIO client the store needs
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOStore uploads the report, preview and highlighted copy of each
// analysis under "<run id>/"
type MinIOStore struct {
	client          ObjectAPI
	bucket          string
	highlightPrefix string
	logger          logging.Logger
}

// NewMinIOStore connects to MinIO and makes sure the bucket exists
func NewMinIOStore(ctx context.Context, cfg model.MinIOConfig, highlightPrefix string, logger logging.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	store := NewMinIOStoreWithClient(client, cfg.Bucket, highlightPrefix, logger)
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("MinIO sink connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return store, nil
}

// NewMinIOStoreWithClient wraps an existing client
func NewMinIOStoreWithClient(client ObjectAPI, bucket, highlightPrefix string, logger logging.Logger) *MinIOStore {
	return &MinIOStore{
		client:          client,
		bucket:          bucket,
		highlightPrefix: highlightPrefix,
		logger:          logger.Named("minio"),
	}
}

// EnsureBucket creates the bucket when missing
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created", logging.String("bucket", s.bucket))
	return nil
}

type artifact struct {
	name        string
	data        []byte
	contentType string
}

// Publish uploads the analysis artifacts
func (s *MinIOStore) Publish(ctx context.Context, res *pipeline.Result) error {
	report, err := reportJSON(res)
	if err != nil {
		return err
	}
	preview, err := previewHTML(res)
	if err != nil {
		return err
	}

	objects := []artifact{
		{"report.json", report, "application/json"},
		{"preview.html", preview, "text/html; charset=utf-8"},
	}
	if len(res.Highlighted) > 0 {
		objects = append(objects, artifact{res.HighlightedName(s.highlightPrefix), res.Highlighted, res.Document.Type.ContentType()})
	}

	for _, obj := range objects {
		key := ObjectKey(res.ID, obj.name)
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.data), int64(len(obj.data)), minio.PutObjectOptions{
			ContentType: obj.contentType,
			UserMetadata: map[string]string{
				"document": res.Document.Name,
				"identity": res.Identity,
			},
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}

	s.logger.Debug("artifacts uploaded",
		logging.String("id", res.ID),
		logging.Int("objects", len(objects)))
	return nil
}

// Close is a no-op; the MinIO client holds no connections to release
func (s *MinIOStore) Close() error {
	return nil
}

// ObjectKey returns the object name of an artifact of one run
func ObjectKey(runID, name string) string {
	return path.Join(runID, path.Base(name))
}
