package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
)

const assetKeyPrefix = "asset:"

// assetRecord KV 中的元数据 JSON
type assetRecord struct {
	AssetID          string    `json:"asset_id"`
	ContentType      string    `json:"content_type"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// AssetRepo 实现 biz.AssetRepo 接口
type AssetRepo struct {
	kv kvstore.Store
}

// NewAssetRepo 创建资产元数据仓储
func NewAssetRepo(kv kvstore.Store) *AssetRepo {
	return &AssetRepo{kv: kv}
}

func (r *AssetRepo) Save(ctx context.Context, asset *biz.Asset) error {
	raw, err := json.Marshal(assetRecord{
		AssetID:          asset.ID,
		ContentType:      asset.ContentType,
		OriginalFilename: asset.OriginalFilename,
		SizeBytes:        asset.SizeBytes,
		UploadedAt:       asset.UploadedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}
	return r.kv.Put(ctx, assetKeyPrefix+asset.ID, raw, 0)
}

func (r *AssetRepo) Get(ctx context.Context, id string) (*biz.Asset, error) {
	raw, err := r.kv.Get(ctx, assetKeyPrefix+id)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, biz.ErrMetadataAbsent
		}
		return nil, err
	}

	var rec assetRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset %s: %w", id, err)
	}

	return &biz.Asset{
		ID:               rec.AssetID,
		ContentType:      rec.ContentType,
		OriginalFilename: rec.OriginalFilename,
		SizeBytes:        rec.SizeBytes,
		UploadedAt:       rec.UploadedAt,
	}, nil
}
