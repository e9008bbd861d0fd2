package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/background"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// ShortLink 短链接
type ShortLink struct {
	Code      string
	AssetID   string
	Clicks    int64
	CreatedAt time.Time
}

// LinkRepo 短链接仓储
type LinkRepo interface {
	// Create 仅当短码未被占用时写入，返回是否写入成功
	Create(ctx context.Context, link *ShortLink) (bool, error)
	Get(ctx context.Context, code string) (*ShortLink, error)
	IncrClicks(ctx context.Context, code string) (int64, error)
	Clicks(ctx context.Context, code string) (int64, error)
}

// AssetLookup 目标资产查询
type AssetLookup interface {
	Exists(ctx context.Context, assetID string) (bool, error)
	CanonicalURL(assetID string) string
}

// ClickRecorder 记录 CLICK 分析事件
type ClickRecorder interface {
	RecordClick(ctx context.Context, assetID, shortCode string) error
}

// Spawner 派发后台任务
type Spawner interface {
	Go(ctx context.Context, name string, task background.Task)
}

// 后台任务名
const (
	TaskIncrClicks = "link.incr_clicks"
	TaskClickEvent = "link.click_event"
)

// LinkUseCase 短链接用例
type LinkUseCase struct {
	repo    LinkRepo
	assets  AssetLookup
	clicks  ClickRecorder
	spawner Spawner
	baseURL string
	logger  *logger.Logger
	now     func() time.Time
}

// NewLinkUseCase 创建短链接用例
func NewLinkUseCase(repo LinkRepo, assets AssetLookup, clicks ClickRecorder, spawner Spawner, publicBaseURL string, log *logger.Logger) *LinkUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return &LinkUseCase{
		repo:    repo,
		assets:  assets,
		clicks:  clicks,
		spawner: spawner,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  log.Named("link"),
		now:     time.Now,
	}
}

// ShortURL 短链接完整地址
func (uc *LinkUseCase) ShortURL(code string) string {
	return uc.baseURL + "/s/" + code
}

// CanonicalURL 目标资产地址
func (uc *LinkUseCase) CanonicalURL(assetID string) string {
	return uc.assets.CanonicalURL(assetID)
}

// Create 创建短链接；customCode 为空时随机生成
func (uc *LinkUseCase) Create(ctx context.Context, assetID, customCode string) (*ShortLink, error) {
	if customCode != "" && !ValidCode(customCode) {
		return nil, ErrInvalidCode
	}

	ok, err := uc.assets.Exists(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("check asset: %w", err)
	}
	if !ok {
		return nil, ErrTargetNotFound
	}

	link := &ShortLink{AssetID: assetID, CreatedAt: uc.now().UTC()}

	if customCode != "" {
		link.Code = customCode
		created, err := uc.repo.Create(ctx, link)
		if err != nil {
			return nil, err
		}
		if !created {
			return nil, ErrCodeTaken
		}
		return link, nil
	}

	for i := 0; i < maxGenerateTries; i++ {
		code, err := generateShortCode(GeneratedCodeLen)
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}
		link.Code = code

		created, err := uc.repo.Create(ctx, link)
		if err != nil {
			return nil, err
		}
		if created {
			return link, nil
		}
		uc.logger.WithContext(ctx).Debug("generated short code collided", zap.String("short_code", code))
	}
	return nil, ErrCodeExhausted
}

// Resolve 返回目标地址，并在后台计数和记录 CLICK 事件，不等待其结果
func (uc *LinkUseCase) Resolve(ctx context.Context, code string) (string, error) {
	if !ValidCode(code) {
		return "", ErrLinkNotFound
	}

	link, err := uc.repo.Get(ctx, code)
	if err != nil {
		return "", err
	}

	uc.spawner.Go(ctx, TaskIncrClicks, func(ctx context.Context) error {
		_, err := uc.repo.IncrClicks(ctx, code)
		return err
	})
	uc.spawner.Go(ctx, TaskClickEvent, func(ctx context.Context) error {
		return uc.clicks.RecordClick(ctx, link.AssetID, code)
	})

	return uc.assets.CanonicalURL(link.AssetID), nil
}

// Get 查询短链接（含点击数）
func (uc *LinkUseCase) Get(ctx context.Context, code string) (*ShortLink, error) {
	if !ValidCode(code) {
		return nil, ErrLinkNotFound
	}

	link, err := uc.repo.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	clicks, err := uc.repo.Clicks(ctx, code)
	if err != nil {
		return nil, err
	}
	link.Clicks = clicks
	return link, nil
}
