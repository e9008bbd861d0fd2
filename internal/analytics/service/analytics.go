package service

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/media-edge-backend/internal/analytics/biz"
	apperrors "github.com/lk2023060901/media-edge-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// DefaultMetricsMaxAge 快照的公共缓存时长
const DefaultMetricsMaxAge = 5 * time.Minute

// AnalyticsService 分析 HTTP 接口
type AnalyticsService struct {
	uc           *biz.AnalyticsUseCase
	logger       *logger.Logger
	cacheControl string
}

// NewAnalyticsService 创建分析服务
func NewAnalyticsService(uc *biz.AnalyticsUseCase, log *logger.Logger, metricsMaxAge time.Duration) *AnalyticsService {
	if log == nil {
		log = logger.NewNop()
	}
	if metricsMaxAge <= 0 {
		metricsMaxAge = DefaultMetricsMaxAge
	}
	return &AnalyticsService{
		uc:           uc,
		logger:       log,
		cacheControl: "public, max-age=" + strconv.Itoa(int(metricsMaxAge/time.Second)),
	}
}

// TrackRequest 事件上报请求
type TrackRequest struct {
	AssetID   string                 `json:"asset_id" binding:"required"`
	EventType string                 `json:"event_type" binding:"required"`
	Platform  string                 `json:"platform"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// EventResponse 单条事件
type EventResponse struct {
	EventType string                 `json:"event_type"`
	Platform  string                 `json:"platform"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// EventListResponse 事件列表
type EventListResponse struct {
	AssetID string          `json:"asset_id"`
	Events  []EventResponse `json:"events"`
}

// RegisterRoutes 注册路由
func (s *AnalyticsService) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/analytics")
	{
		g.POST("/track", s.Track)
		g.GET("/metrics/:asset_id", s.GetMetrics)
		g.GET("/events/:asset_id", s.ListEvents)
	}
}

// Track 记录一条事件
func (s *AnalyticsService) Track(c *gin.Context) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	_, err := s.uc.Record(c.Request.Context(), &biz.RecordInput{
		AssetID:   req.AssetID,
		EventType: req.EventType,
		Platform:  req.Platform,
		Metadata:  req.Metadata,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, gin.H{"success": true})
}

// GetMetrics 返回快照原文；没有快照时返回全零且不缓存
func (s *AnalyticsService) GetMetrics(c *gin.Context) {
	m, err := s.uc.GetMetrics(c.Request.Context(), c.Param("asset_id"))
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Error("metrics snapshot read failed",
			zap.String("asset_id", c.Param("asset_id")),
			zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
		return
	}

	if !m.Cached() {
		c.Header("Cache-Control", "no-cache")
		response.Success(c, m.Snapshot)
		return
	}

	c.Header("Cache-Control", s.cacheControl)
	c.Data(http.StatusOK, "application/json; charset=utf-8", m.Raw)
}

// ListEvents 保留期内的原始事件，按时间倒序
func (s *AnalyticsService) ListEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.ErrorWithCode(c, apperrors.ErrInvalidParams, "limit must be a positive integer")
			return
		}
		limit = n
	}

	assetID := c.Param("asset_id")
	events, err := s.uc.ListEvents(c.Request.Context(), assetID, limit)
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		md := e.Metadata
		if md == nil {
			md = map[string]interface{}{}
		}
		out = append(out, EventResponse{
			EventType: string(e.Type),
			Platform:  e.Platform,
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Metadata:  md,
		})
	}

	response.Success(c, EventListResponse{AssetID: assetID, Events: out})
}

func (s *AnalyticsService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrInvalidEventType):
		response.ErrorWithCode(c, apperrors.ErrAnalyticsInvalidEvent, err.Error())
	case errors.Is(err, biz.ErrMissingAssetID):
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
	case errors.Is(err, biz.ErrEventWrite), errors.Is(err, biz.ErrKeyCollision):
		s.logger.WithContext(c.Request.Context()).Error("analytics event write failed", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrAnalyticsStoreFailed))
	default:
		s.logger.WithContext(c.Request.Context()).Error("analytics operation failed", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
	}
}
