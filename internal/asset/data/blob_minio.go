package data

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	pkgminio "github.com/lk2023060901/media-edge-backend/internal/pkg/minio"
)

const immutableCacheControl = "public, max-age=31536000, immutable"

// MinIOBlobStore 实现 biz.RangeBlobStore 接口
type MinIOBlobStore struct {
	client *pkgminio.Client
	bucket string
}

// NewMinIOBlobStore 创建 MinIO blob 存储
func NewMinIOBlobStore(client *pkgminio.Client, bucket string) *MinIOBlobStore {
	return &MinIOBlobStore{
		client: client,
		bucket: bucket,
	}
}

// Put 上传 blob，内容类型写入对象元数据
func (s *MinIOBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), pkgminio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: immutableCacheControl,
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}

// Stat 获取 blob 属性
func (s *MinIOBlobStore) Stat(ctx context.Context, key string) (*biz.BlobInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key)
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return nil, biz.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat blob: %w", err)
	}
	return &biz.BlobInfo{
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

// Get 获取完整 blob
func (s *MinIOBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, *biz.BlobInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, pkgminio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get blob: %w", err)
	}

	// GetObject 是惰性的，Stat 才会暴露 NoSuchKey
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if pkgminio.IsNotFound(err) {
			return nil, nil, biz.ErrBlobNotFound
		}
		return nil, nil, fmt.Errorf("failed to stat blob: %w", err)
	}

	return obj, &biz.BlobInfo{
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

// GetRange 使用 HTTP Range 只拉取 [start, end]
func (s *MinIOBlobStore) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, pkgminio.GetObjectOptions{
		HasRange:   true,
		RangeStart: start,
		RangeEnd:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get blob range: %w", err)
	}
	return obj, nil
}
