package biz

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/metrics"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultEventTTL  = 24 * time.Hour
	DefaultListLimit = 100
	MaxListLimit     = 1000

	maxAppendTries = 3
	// ClickPlatformPrefix CLICK 事件的 platform 形如 short-link:<code>
	ClickPlatformPrefix = "short-link:"
)

// EventRepo 事件仓储
type EventRepo interface {
	// Append 仅当键未被占用时写入，返回是否写入成功
	Append(ctx context.Context, event *Event, ttl time.Duration) (bool, error)
	// List 返回仍在保留期内的事件，按时间倒序
	List(ctx context.Context, assetID string, limit int) ([]*Event, error)
}

// SnapshotRepo 指标快照仓储（只读）
type SnapshotRepo interface {
	Get(ctx context.Context, assetID string) ([]byte, error)
}

// RecordInput 事件参数
type RecordInput struct {
	AssetID   string
	EventType string
	Platform  string
	Metadata  map[string]interface{}
}

// AnalyticsUseCase 事件记录与指标读取
type AnalyticsUseCase struct {
	events    EventRepo
	snapshots SnapshotRepo
	ttl       time.Duration
	logger    *logger.Logger
	now       func() time.Time
	nonce     func() string
}

// NewAnalyticsUseCase 创建分析用例；eventTTL <= 0 时使用 24 小时
func NewAnalyticsUseCase(events EventRepo, snapshots SnapshotRepo, eventTTL time.Duration, log *logger.Logger) *AnalyticsUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	if eventTTL <= 0 {
		eventTTL = DefaultEventTTL
	}
	return &AnalyticsUseCase{
		events:    events,
		snapshots: snapshots,
		ttl:       eventTTL,
		logger:    log.Named("analytics"),
		now:       time.Now,
		nonce:     newNonce,
	}
}

func newNonce() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Record 追加一条事件
func (uc *AnalyticsUseCase) Record(ctx context.Context, in *RecordInput) (*Event, error) {
	if in == nil || in.AssetID == "" {
		return nil, ErrMissingAssetID
	}
	typ, err := ParseEventType(in.EventType)
	if err != nil {
		return nil, err
	}

	event := &Event{
		AssetID:   in.AssetID,
		Type:      typ,
		Platform:  in.Platform,
		Timestamp: uc.now().UTC(),
		Metadata:  in.Metadata,
	}

	for i := 0; i < maxAppendTries; i++ {
		event.Nonce = uc.nonce()
		created, err := uc.events.Append(ctx, event, uc.ttl)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventWrite, err)
		}
		if created {
			metrics.IncEvent(string(typ))
			return event, nil
		}
		uc.logger.WithContext(ctx).Warn("analytics event key collided",
			zap.String("asset_id", event.AssetID),
			zap.String("nonce", event.Nonce))
	}
	return nil, ErrKeyCollision
}

// RecordClick 记录短链接跳转产生的 CLICK 事件
func (uc *AnalyticsUseCase) RecordClick(ctx context.Context, assetID, shortCode string) error {
	_, err := uc.Record(ctx, &RecordInput{
		AssetID:   assetID,
		EventType: string(EventClick),
		Platform:  ClickPlatformPrefix + shortCode,
		Metadata:  map[string]interface{}{"short_code": shortCode},
	})
	return err
}

// GetMetrics 读取快照；不存在或内容无效时返回全零快照
func (uc *AnalyticsUseCase) GetMetrics(ctx context.Context, assetID string) (*Metrics, error) {
	raw, err := uc.snapshots.Get(ctx, assetID)
	if err != nil {
		if errors.Is(err, ErrSnapshotAbsent) {
			return &Metrics{}, nil
		}
		return nil, err
	}

	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		uc.logger.WithContext(ctx).Warn("ignoring malformed metrics snapshot", zap.String("asset_id", assetID))
		return &Metrics{}, nil
	}

	res := gjson.GetManyBytes(raw, "views", "plays", "clicks", "ctr")
	return &Metrics{
		Snapshot: MetricsSnapshot{
			Views:  res[0].Int(),
			Plays:  res[1].Int(),
			Clicks: res[2].Int(),
			CTR:    res[3].Float(),
		},
		Raw: raw,
	}, nil
}

// ListEvents 列出保留期内的事件，limit 超出范围时取默认值或上限
func (uc *AnalyticsUseCase) ListEvents(ctx context.Context, assetID string, limit int) ([]*Event, error) {
	if assetID == "" {
		return nil, ErrMissingAssetID
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return uc.events.List(ctx, assetID, limit)
}
