package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/analytics/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
)

const eventKeyPrefix = "analytics:"

// eventRecord KV 中的事件 JSON
type eventRecord struct {
	AssetID   string                 `json:"asset_id"`
	EventType string                 `json:"event_type"`
	Platform  string                 `json:"platform"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Nonce     string                 `json:"nonce"`
}

// eventKey analytics:{asset_id}:{unix_ms}:{nonce}
func eventKey(e *biz.Event) string {
	return eventKeyPrefix + e.AssetID + ":" + strconv.FormatInt(e.Timestamp.UnixMilli(), 10) + ":" + e.Nonce
}

// EventRepo 实现 biz.EventRepo 接口
type EventRepo struct {
	kv kvstore.Store
}

// NewEventRepo 创建事件仓储
func NewEventRepo(kv kvstore.Store) *EventRepo {
	return &EventRepo{kv: kv}
}

func (r *EventRepo) Append(ctx context.Context, e *biz.Event, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(eventRecord{
		AssetID:   e.AssetID,
		EventType: string(e.Type),
		Platform:  e.Platform,
		Timestamp: e.Timestamp,
		Metadata:  e.Metadata,
		Nonce:     e.Nonce,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.kv.PutIfAbsent(ctx, eventKey(e), raw, ttl)
}

func (r *EventRepo) List(ctx context.Context, assetID string, limit int) ([]*biz.Event, error) {
	keys, err := r.kv.Keys(ctx, eventKeyPrefix+assetID+":", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list event keys: %w", err)
	}

	events := make([]*biz.Event, 0, len(keys))
	for _, key := range keys {
		raw, err := r.kv.Get(ctx, key)
		if err != nil {
			// 列举与读取之间过期
			if errors.Is(err, kvstore.ErrNotFound) {
				continue
			}
			return nil, err
		}

		var rec eventRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %s: %w", key, err)
		}
		// 前缀可能命中以 "{asset_id}:" 开头的其他资产
		if rec.AssetID != assetID {
			continue
		}

		events = append(events, &biz.Event{
			AssetID:   rec.AssetID,
			Type:      biz.EventType(rec.EventType),
			Platform:  rec.Platform,
			Timestamp: rec.Timestamp,
			Metadata:  rec.Metadata,
			Nonce:     rec.Nonce,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].Nonce > events[j].Nonce
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
