package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/abduss/bitbeem/internal/ident"
	"github.com/minio/minio-go/v7"
)

const noSuchKey = "NoSuchKey"

type objectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinIO keeps one object per blob in a bucket, named by the identifier.
type MinIO struct {
	client objectClient
	bucket string
	region string
}

// NewMinIO adapts a minio.Client into a blob store.
func NewMinIO(client *minio.Client, bucket, region string) *MinIO {
	return &MinIO{client: minioAdapter{client}, bucket: bucket, region: region}
}

func (m *MinIO) Ensure(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", m.bucket, err)
	}
	return nil
}

func (m *MinIO) Put(ctx context.Context, id string, data []byte) error {
	if !ident.Valid(id) {
		return ErrInvalidID
	}
	_, err := m.client.PutObject(ctx, m.bucket, id, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", id, err)
	}
	return nil
}

func (m *MinIO) Exists(ctx context.Context, id string) (bool, error) {
	if !ident.Valid(id) {
		return false, nil
	}
	if _, err := m.client.StatObject(ctx, m.bucket, id, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", id, err)
	}
	return true, nil
}

func (m *MinIO) Get(ctx context.Context, id string) ([]byte, error) {
	if !ident.Valid(id) {
		return nil, ErrNotFound
	}
	object, err := m.client.GetObject(ctx, m.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object %s: %w", id, err)
	}
	return data, nil
}

// Delete relies on S3 semantics: removing a missing key succeeds.
func (m *MinIO) Delete(ctx context.Context, id string) error {
	if !ident.Valid(id) {
		return ErrInvalidID
	}
	if err := m.client.RemoveObject(ctx, m.bucket, id, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove object %s: %w", id, err)
	}
	return nil
}

func (m *MinIO) List(ctx context.Context) ([]string, error) {
	var ids []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if ident.Valid(obj.Key) {
			ids = append(ids, obj.Key)
		}
	}
	return ids, nil
}

func (m *MinIO) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == noSuchKey
}

// minioAdapter narrows GetObject to io.ReadCloser so tests can fake the client.
type minioAdapter struct {
	*minio.Client
}

func (a minioAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucketName, objectName, opts)
}
