package data

import (
	"context"
	"errors"

	"github.com/lk2023060901/media-edge-backend/internal/analytics/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
)

// SnapshotKeyPrefix 外部聚合器按 metrics:{asset_id} 写入快照
const SnapshotKeyPrefix = "metrics:"

// SnapshotRepo 实现 biz.SnapshotRepo 接口
type SnapshotRepo struct {
	kv kvstore.Store
}

// NewSnapshotRepo 创建快照仓储
func NewSnapshotRepo(kv kvstore.Store) *SnapshotRepo {
	return &SnapshotRepo{kv: kv}
}

func (r *SnapshotRepo) Get(ctx context.Context, assetID string) ([]byte, error) {
	raw, err := r.kv.Get(ctx, SnapshotKeyPrefix+assetID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, biz.ErrSnapshotAbsent
		}
		return nil, err
	}
	return raw, nil
}
