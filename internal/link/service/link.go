package service

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/media-edge-backend/internal/link/biz"
	apperrors "github.com/lk2023060901/media-edge-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/metrics"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/response"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// LinkService 短链接 HTTP 接口
type LinkService struct {
	uc     *biz.LinkUseCase
	logger *logger.Logger
}

// NewLinkService 创建短链接服务
func NewLinkService(uc *biz.LinkUseCase, log *logger.Logger) *LinkService {
	if log == nil {
		log = logger.NewNop()
	}
	return &LinkService{uc: uc, logger: log}
}

// CreateLinkRequest 创建短链接请求
type CreateLinkRequest struct {
	AssetID   string `json:"asset_id" binding:"required"`
	ShortCode string `json:"short_code"`
}

// LinkResponse 创建结果
type LinkResponse struct {
	ShortCode    string `json:"short_code"`
	AssetID      string `json:"asset_id"`
	ShortURL     string `json:"short_url"`
	CanonicalURL string `json:"canonical_url"`
	CreatedAt    string `json:"created_at"`
}

// LinkStatsResponse 短链接统计
type LinkStatsResponse struct {
	ShortCode string `json:"short_code"`
	AssetID   string `json:"asset_id"`
	Clicks    int64  `json:"clicks"`
	CreatedAt string `json:"created_at"`
}

// RegisterRoutes 注册路由
func (s *LinkService) RegisterRoutes(r gin.IRouter) {
	r.GET("/s/:short_code", s.Redirect)
	r.GET("/s/:short_code/qr", s.QRCode)

	links := r.Group("/links")
	{
		links.POST("", s.CreateLink)
		links.GET("/:short_code", s.GetLink)
	}
}

// Redirect 302 跳转到资产地址
func (s *LinkService) Redirect(c *gin.Context) {
	target, err := s.uc.Resolve(c.Request.Context(), c.Param("short_code"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	metrics.IncRedirect()
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, target)
}

// QRCode 返回短链接二维码（PNG）
func (s *LinkService) QRCode(c *gin.Context) {
	code := c.Param("short_code")

	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			response.ErrorWithCode(c, apperrors.ErrInvalidParams, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	if _, err := s.uc.Get(c.Request.Context(), code); err != nil {
		s.handleError(c, err)
		return
	}

	png, err := qrcode.Encode(s.uc.ShortURL(code), qrcode.Medium, size)
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Error("qr encode failed", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

// CreateLink 创建短链接
func (s *LinkService) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	link, err := s.uc.Create(c.Request.Context(), req.AssetID, req.ShortCode)
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.logger.WithContext(c.Request.Context()).Info("short link created",
		zap.String("short_code", link.Code),
		zap.String("asset_id", link.AssetID))

	response.Created(c, LinkResponse{
		ShortCode:    link.Code,
		AssetID:      link.AssetID,
		ShortURL:     s.uc.ShortURL(link.Code),
		CanonicalURL: s.uc.CanonicalURL(link.AssetID),
		CreatedAt:    link.CreatedAt.Format(time.RFC3339),
	})
}

// GetLink 查询短链接与点击数
func (s *LinkService) GetLink(c *gin.Context) {
	link, err := s.uc.Get(c.Request.Context(), c.Param("short_code"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, LinkStatsResponse{
		ShortCode: link.Code,
		AssetID:   link.AssetID,
		Clicks:    link.Clicks,
		CreatedAt: link.CreatedAt.Format(time.RFC3339),
	})
}

func (s *LinkService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrLinkNotFound):
		response.ErrorWithCode(c, apperrors.ErrLinkNotFound)
	case errors.Is(err, biz.ErrTargetNotFound):
		response.ErrorWithCode(c, apperrors.ErrAssetNotFound)
	case errors.Is(err, biz.ErrInvalidCode):
		response.ErrorWithCode(c, apperrors.ErrLinkInvalidCode)
	case errors.Is(err, biz.ErrCodeTaken):
		response.ErrorWithCode(c, apperrors.ErrLinkCodeTaken)
	default:
		s.logger.WithContext(c.Request.Context()).Error("short link operation failed", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer))
	}
}
