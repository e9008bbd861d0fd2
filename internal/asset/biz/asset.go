package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// Asset 资产元数据
type Asset struct {
	ID               string
	ContentType      string
	OriginalFilename string
	SizeBytes        int64
	UploadedAt       time.Time
}

// BlobInfo blob 的存储属性
type BlobInfo struct {
	Size        int64
	ContentType string
	ETag        string // 存储层内容指纹，不带引号
}

// BlobStore 不可变字节对象存储
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Stat(ctx context.Context, key string) (*BlobInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *BlobInfo, error)
}

// RangeBlobStore 支持原生部分读取的 BlobStore
type RangeBlobStore interface {
	BlobStore
	GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}

// AssetRepo 资产元数据仓储
type AssetRepo interface {
	Save(ctx context.Context, asset *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
}

// IngestInput 上传参数
type IngestInput struct {
	Data        []byte
	ContentType string
	Filename    string
}

// IngestResult 上传结果
type IngestResult struct {
	AssetID      string
	CanonicalURL string
	Size         int64
}

// Content 读取结果；Range 为 nil 表示完整内容
type Content struct {
	Body  io.ReadCloser
	Info  BlobInfo
	Range *ByteRange
}

// AssetUseCase 资产用例
type AssetUseCase struct {
	blobs   BlobStore
	repo    AssetRepo
	addr    *Addresser
	baseURL string
	logger  *logger.Logger
	now     func() time.Time
}

// NewAssetUseCase 创建资产用例
func NewAssetUseCase(blobs BlobStore, repo AssetRepo, addr *Addresser, publicBaseURL string, log *logger.Logger) *AssetUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return &AssetUseCase{
		blobs:   blobs,
		repo:    repo,
		addr:    addr,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  log.Named("asset"),
		now:     time.Now,
	}
}

// CanonicalURL 资产的唯一访问地址
func (uc *AssetUseCase) CanonicalURL(id string) string {
	return uc.baseURL + "/a/" + id
}

// Ingest 计算 id → 写 blob → 写元数据。
// blob 写失败时不落任何状态；元数据写失败会留下孤立 blob，
// 同样内容再次上传时会直接复用。
func (uc *AssetUseCase) Ingest(ctx context.Context, in *IngestInput) (*IngestResult, error) {
	if in == nil || len(in.Data) == 0 {
		return nil, ErrEmptyPayload
	}

	id := uc.addr.ID(in.Data)
	key := BlobKey(id)
	size := int64(len(in.Data))
	log := uc.logger.WithContext(ctx).With(zap.String("asset_id", id))

	// 同内容同类型的 blob 已存在时跳过写入；类型不同则重写，使 blob 与元数据一致
	exists := false
	info, err := uc.blobs.Stat(ctx, key)
	switch {
	case err == nil:
		exists = info.Size == size && info.ContentType == in.ContentType
	case !errors.Is(err, ErrBlobNotFound):
		log.Warn("blob stat failed, writing anyway", zap.Error(err))
	}

	if !exists {
		if err := uc.blobs.Put(ctx, key, in.Data, in.ContentType); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBlobWrite, err)
		}
	}

	asset := &Asset{
		ID:               id,
		ContentType:      in.ContentType,
		OriginalFilename: in.Filename,
		SizeBytes:        size,
		UploadedAt:       uc.now().UTC(),
	}
	if err := uc.repo.Save(ctx, asset); err != nil {
		log.Error("metadata write failed after blob write", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMetadataWrite, err)
	}

	log.Info("asset ingested",
		zap.Int64("size", size),
		zap.Bool("deduplicated", exists),
		zap.String("content_type", in.ContentType),
	)

	return &IngestResult{
		AssetID:      id,
		CanonicalURL: uc.CanonicalURL(id),
		Size:         size,
	}, nil
}

// Stat 查询 blob 属性（HEAD 使用）
func (uc *AssetUseCase) Stat(ctx context.Context, id string) (*BlobInfo, error) {
	if !uc.addr.Valid(id) {
		return nil, ErrAssetNotFound
	}
	info, err := uc.blobs.Stat(ctx, BlobKey(id))
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return info, nil
}

// Exists 判断资产是否存在
func (uc *AssetUseCase) Exists(ctx context.Context, id string) (bool, error) {
	_, err := uc.Stat(ctx, id)
	if errors.Is(err, ErrAssetNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Open 读取资产内容。rangeHeader 非空时先确认资产存在再解析范围，
// 因此未知资产总是返回 ErrAssetNotFound。
func (uc *AssetUseCase) Open(ctx context.Context, id, rangeHeader string) (*Content, error) {
	if !uc.addr.Valid(id) {
		return nil, ErrAssetNotFound
	}
	key := BlobKey(id)

	if rangeHeader == "" {
		body, info, err := uc.blobs.Get(ctx, key)
		if err != nil {
			if errors.Is(err, ErrBlobNotFound) {
				return nil, ErrAssetNotFound
			}
			return nil, err
		}
		return &Content{Body: body, Info: *info}, nil
	}

	info, err := uc.Stat(ctx, id)
	if err != nil {
		return nil, err
	}

	r, err := ParseRange(rangeHeader, info.Size)
	if err != nil {
		return &Content{Info: *info}, err
	}

	body, err := uc.readRange(ctx, key, r)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &Content{Body: body, Info: *info, Range: &r}, nil
}

type rangeReadCloser struct {
	io.Reader
	io.Closer
}

// readRange 优先使用存储的原生范围读取；否则顺序读取整个对象，
// 跳过 start 之前的字节后截取。结果正确，但大文件会多传输前缀部分。
func (uc *AssetUseCase) readRange(ctx context.Context, key string, r ByteRange) (io.ReadCloser, error) {
	if rs, ok := uc.blobs.(RangeBlobStore); ok {
		return rs.GetRange(ctx, key, r.Start, r.End)
	}

	body, _, err := uc.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, err := io.CopyN(io.Discard, body, r.Start); err != nil {
		body.Close()
		return nil, fmt.Errorf("skip to range start: %w", err)
	}
	return rangeReadCloser{Reader: io.LimitReader(body, r.Length()), Closer: body}, nil
}

// GetMetadata 查询资产元数据
func (uc *AssetUseCase) GetMetadata(ctx context.Context, id string) (*Asset, error) {
	if !uc.addr.Valid(id) {
		return nil, ErrAssetNotFound
	}
	asset, err := uc.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMetadataAbsent) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}
