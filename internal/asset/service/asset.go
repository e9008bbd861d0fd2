package service

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	apperrors "github.com/lk2023060901/media-edge-backend/internal/pkg/errors"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/logger"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/metrics"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	immutableCacheControl = "public, max-age=31536000, immutable"
	defaultContentType    = "application/octet-stream"
)

// AssetService 资产 HTTP 接口
type AssetService struct {
	uc             *biz.AssetUseCase
	logger         *logger.Logger
	maxUploadBytes int64
}

// NewAssetService 创建资产服务；maxUploadBytes <= 0 表示不限制
func NewAssetService(uc *biz.AssetUseCase, log *logger.Logger, maxUploadBytes int64) *AssetService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AssetService{
		uc:             uc,
		logger:         log,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadResponse 上传结果
type UploadResponse struct {
	AssetID      string `json:"asset_id"`
	CanonicalURL string `json:"canonical_url"`
	Size         int64  `json:"size"`
}

// AssetResponse 资产元数据
type AssetResponse struct {
	AssetID          string `json:"asset_id"`
	ContentType      string `json:"content_type"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	UploadedAt       string `json:"uploaded_at"`
	CanonicalURL     string `json:"canonical_url"`
}

// RegisterRoutes 注册路由
func (s *AssetService) RegisterRoutes(r gin.IRouter) {
	r.POST("/upload", s.Upload)
	r.GET("/a/:asset_id", s.Serve)
	r.HEAD("/a/:asset_id", s.Head)
	r.GET("/assets/:asset_id", s.GetAsset)
}

// Upload 上传文件（multipart 字段 file）
func (s *AssetService) Upload(c *gin.Context) {
	if s.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		metrics.ObserveIngestion(metrics.ResultError, 0)
		if isTooLarge(err) {
			response.ErrorWithCode(c, apperrors.ErrPayloadTooLarge)
			return
		}
		response.ErrorWithCode(c, apperrors.ErrAssetEmptyPayload)
		return
	}
	defer file.Close()

	// 读取文件内容
	fileData, err := io.ReadAll(file)
	if err != nil {
		metrics.ObserveIngestion(metrics.ResultError, 0)
		if isTooLarge(err) {
			response.ErrorWithCode(c, apperrors.ErrPayloadTooLarge)
			return
		}
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrBadRequest, "failed to read file"))
		return
	}

	result, err := s.uc.Ingest(c.Request.Context(), &biz.IngestInput{
		Data:        fileData,
		ContentType: resolveContentType(header.Header.Get("Content-Type"), header.Filename),
		Filename:    header.Filename,
	})
	if err != nil {
		metrics.ObserveIngestion(metrics.ResultError, 0)
		if errors.Is(err, biz.ErrEmptyPayload) {
			response.ErrorWithCode(c, apperrors.ErrAssetEmptyPayload)
			return
		}
		s.logger.WithContext(c.Request.Context()).Error("ingestion failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrAssetStoreFailed))
		return
	}

	metrics.ObserveIngestion(metrics.ResultOK, result.Size)
	response.Created(c, UploadResponse{
		AssetID:      result.AssetID,
		CanonicalURL: result.CanonicalURL,
		Size:         result.Size,
	})
}

// Serve 返回完整内容或单段范围
func (s *AssetService) Serve(c *gin.Context) {
	id := c.Param("asset_id")
	rangeHeader := c.GetHeader("Range")

	content, err := s.uc.Open(c.Request.Context(), id, rangeHeader)
	if err != nil {
		switch {
		case errors.Is(err, biz.ErrAssetNotFound):
			response.ErrorWithCode(c, apperrors.ErrAssetNotFound)
		case errors.Is(err, biz.ErrRangeMalformed), errors.Is(err, biz.ErrRangeUnsatisfiable):
			if content != nil {
				c.Header("Content-Range", "bytes */"+strconv.FormatInt(content.Info.Size, 10))
			}
			response.ErrorWithCode(c, apperrors.ErrRangeNotSatisfiable, rangeHeader)
		default:
			s.logger.WithContext(c.Request.Context()).Error("asset read failed",
				zap.String("asset_id", id),
				zap.Error(err))
			response.HandleError(c, apperrors.Wrap(err, apperrors.ErrAssetStoreFailed))
		}
		return
	}
	defer content.Body.Close()

	etag := quoteETag(content.Info.ETag)
	headers := map[string]string{
		"Cache-Control": immutableCacheControl,
		"Accept-Ranges": "bytes",
	}
	if etag != "" {
		headers["ETag"] = etag
	}

	if content.Range == nil && etagMatches(c.GetHeader("If-None-Match"), etag) {
		for k, v := range headers {
			c.Header(k, v)
		}
		c.Status(http.StatusNotModified)
		return
	}

	contentType := content.Info.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if content.Range != nil {
		headers["Content-Range"] = content.Range.ContentRange(content.Info.Size)
		c.DataFromReader(http.StatusPartialContent, content.Range.Length(), contentType, content.Body, headers)
		metrics.ObserveServedBytes("range", content.Range.Length())
		return
	}

	c.DataFromReader(http.StatusOK, content.Info.Size, contentType, content.Body, headers)
	metrics.ObserveServedBytes("full", content.Info.Size)
}

// Head 仅返回头部
func (s *AssetService) Head(c *gin.Context) {
	info, err := s.uc.Stat(c.Request.Context(), c.Param("asset_id"))
	if err != nil {
		if errors.Is(err, biz.ErrAssetNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		s.logger.WithContext(c.Request.Context()).Error("asset stat failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	etag := quoteETag(info.ETag)
	c.Header("Cache-Control", immutableCacheControl)
	c.Header("Accept-Ranges", "bytes")
	if etag != "" {
		c.Header("ETag", etag)
	}
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Status(http.StatusOK)
}

// GetAsset 查询资产元数据
func (s *AssetService) GetAsset(c *gin.Context) {
	id := c.Param("asset_id")
	asset, err := s.uc.GetMetadata(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, biz.ErrAssetNotFound) {
			response.ErrorWithCode(c, apperrors.ErrAssetNotFound)
			return
		}
		s.logger.WithContext(c.Request.Context()).Error("asset metadata read failed", zap.Error(err))
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrAssetStoreFailed))
		return
	}

	response.Success(c, AssetResponse{
		AssetID:          asset.ID,
		ContentType:      asset.ContentType,
		OriginalFilename: asset.OriginalFilename,
		SizeBytes:        asset.SizeBytes,
		UploadedAt:       asset.UploadedAt.UTC().Format(time.RFC3339),
		CanonicalURL:     s.uc.CanonicalURL(asset.ID),
	})
}

// resolveContentType 依次使用声明的类型、扩展名推断、octet-stream
func resolveContentType(declared, filename string) string {
	if declared != "" && declared != defaultContentType {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return defaultContentType
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func quoteETag(etag string) string {
	if etag == "" || strings.HasPrefix(etag, `"`) || strings.HasPrefix(etag, `W/"`) {
		return etag
	}
	return `"` + etag + `"`
}

// etagMatches 按弱比较处理 If-None-Match
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
