package data

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"

	"github.com/lk2023060901/media-edge-backend/internal/asset/biz"
)

type memoryBlob struct {
	data        []byte
	contentType string
	etag        string
}

// MemoryBlobStore 进程内 blob 存储，不支持原生范围读取
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
	puts  int
}

// NewMemoryBlobStore 创建内存 blob 存储
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string]memoryBlob)}
}

func (s *MemoryBlobStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	sum := md5.Sum(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = memoryBlob{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
	}
	s.puts++
	return nil
}

func (s *MemoryBlobStore) Stat(_ context.Context, key string) (*biz.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, biz.ErrBlobNotFound
	}
	return b.info(), nil
}

func (s *MemoryBlobStore) Get(_ context.Context, key string) (io.ReadCloser, *biz.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[key]
	if !ok {
		return nil, nil, biz.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), b.info(), nil
}

// Len 当前 blob 数量
func (s *MemoryBlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Puts 累计写入次数
func (s *MemoryBlobStore) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

func (b memoryBlob) info() *biz.BlobInfo {
	return &biz.BlobInfo{
		Size:        int64(len(b.data)),
		ContentType: b.contentType,
		ETag:        b.etag,
	}
}
