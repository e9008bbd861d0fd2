package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/link/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
)

const linkKeyPrefix = "link:"

// linkRecord KV 中的短链接 JSON
type linkRecord struct {
	ShortCode string    `json:"short_code"`
	AssetID   string    `json:"asset_id"`
	CreatedAt time.Time `json:"created_at"`
}

func linkKey(code string) string   { return linkKeyPrefix + code }
func clicksKey(code string) string { return linkKeyPrefix + code + ":clicks" }

// LinkRepo 实现 biz.LinkRepo 接口
type LinkRepo struct {
	kv kvstore.Store
}

// NewLinkRepo 创建短链接仓储
func NewLinkRepo(kv kvstore.Store) *LinkRepo {
	return &LinkRepo{kv: kv}
}

func (r *LinkRepo) Create(ctx context.Context, link *biz.ShortLink) (bool, error) {
	raw, err := json.Marshal(linkRecord{
		ShortCode: link.Code,
		AssetID:   link.AssetID,
		CreatedAt: link.CreatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal link: %w", err)
	}
	return r.kv.PutIfAbsent(ctx, linkKey(link.Code), raw, 0)
}

func (r *LinkRepo) Get(ctx context.Context, code string) (*biz.ShortLink, error) {
	raw, err := r.kv.Get(ctx, linkKey(code))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, biz.ErrLinkNotFound
		}
		return nil, err
	}

	var rec linkRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link %s: %w", code, err)
	}
	return &biz.ShortLink{
		Code:      code,
		AssetID:   rec.AssetID,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// IncrClicks 使用存储原生的原子自增
func (r *LinkRepo) IncrClicks(ctx context.Context, code string) (int64, error) {
	return r.kv.Incr(ctx, clicksKey(code))
}

func (r *LinkRepo) Clicks(ctx context.Context, code string) (int64, error) {
	raw, err := r.kv.Get(ctx, clicksKey(code))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt click counter for %s: %w", code, err)
	}
	return n, nil
}
