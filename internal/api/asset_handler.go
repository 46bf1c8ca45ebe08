package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"pagecraft/internal/api/middleware"
	"pagecraft/internal/database"
	"pagecraft/internal/editor"
	"pagecraft/internal/errcode"
	"pagecraft/internal/storage"
)

const (
	defaultMaxAssetsPerPage = 200
	defaultMaxUploadsPerDay = 100
)

type assetStore interface {
	Create(ctx context.Context, asset database.Asset) error
	CountByPage(ctx context.Context, page string) (int64, error)
	ListByPage(ctx context.Context, page string, limit int) ([]database.Asset, error)
	FindByObjectKey(ctx context.Context, objectKey string) (database.Asset, error)
}

type assetObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// AssetHandler 负责处理页面图片、视频素材的上传与访问。
type AssetHandler struct {
	store         assetStore
	Storage       assetObjectStorage
	ClamdAddr     string
	MaxBytes      int64
	MIMEWhitelist []string
	RedisClient   redisRateCounter

	maxAssetsPerPage int
	maxUploadsPerDay int
}

// NewAssetHandler 返回 AssetHandler 实例。redisClient 为空时不做每日限流。
func NewAssetHandler(store assetStore, storageClient assetObjectStorage, redisClient redisRateCounter, clamdAddr string, maxBytes int64, mimeWhitelist []string) *AssetHandler {
	return &AssetHandler{
		store:            store,
		Storage:          storageClient,
		ClamdAddr:        clamdAddr,
		MaxBytes:         maxBytes,
		MIMEWhitelist:    mimeWhitelist,
		RedisClient:      redisClient,
		maxAssetsPerPage: defaultMaxAssetsPerPage,
		maxUploadsPerDay: defaultMaxUploadsPerDay,
	}
}

// UploadAsset 处理页面素材上传：限额、类型嗅探、病毒扫描，然后写入 MinIO。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	page := c.PostForm("page")
	if !editor.ValidPage(page) {
		BadRequest(c, "invalid page")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if h.MaxBytes > 0 && file.Size > h.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, errcode.InvalidRequest, "file too large")
		return
	}

	count, err := h.store.CountByPage(ctx, page)
	if err != nil {
		log.Error("count assets", slog.Any("error", err))
		Internal(c, "failed to count assets")
		return
	}
	if h.maxAssetsPerPage > 0 && count >= int64(h.maxAssetsPerPage) {
		Forbidden(c, "asset limit reached")
		return
	}

	if h.RedisClient != nil && h.maxUploadsPerDay > 0 {
		uploads, err := countDailyUpload(ctx, h.RedisClient, page, time.Now())
		if err != nil {
			// 限流计数不可用时放行。
			log.Warn("incr upload counter", slog.Any("error", err))
		} else if uploads > int64(h.maxUploadsPerDay) {
			Error(c, http.StatusTooManyRequests, errcode.InvalidRequest, "daily upload limit reached")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	detected, err := mimetype.DetectReader(fileReader)
	fileReader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if !h.mimeAllowed(detected) {
		Error(c, http.StatusUnsupportedMediaType, errcode.InvalidRequest, "unsupported file type "+detected.String())
		return
	}

	if h.ClamdAddr != "" {
		clean, err := h.scan(file.Open)
		if err != nil {
			log.Error("scan file", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err = file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	objectKey := storage.AssetKey(page, detected.Extension())
	contentType := detected.String()
	if _, err := h.Storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		log.Error("upload file", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	asset := database.Asset{
		PageKey:      page,
		ObjectKey:    objectKey,
		ContentType:  contentType,
		SizeBytes:    file.Size,
		OriginalName: file.Filename,
	}
	if err := h.store.Create(ctx, asset); err != nil {
		log.Error("record asset", slog.Any("error", err))
		Internal(c, "failed to record asset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"objectKey":   objectKey,
		"contentType": contentType,
		"size":        file.Size,
	})
}

func (h *AssetHandler) mimeAllowed(m *mimetype.MIME) bool {
	if len(h.MIMEWhitelist) == 0 {
		return true
	}
	return slices.ContainsFunc(h.MIMEWhitelist, func(allowed string) bool {
		return m.Is(allowed)
	})
}

func (h *AssetHandler) scan(open func() (multipart.File, error)) (bool, error) {
	reader, err := open()
	if err != nil {
		return false, err
	}
	defer reader.Close()

	abortChan := make(chan bool)
	defer close(abortChan)
	scanChan, err := clamd.NewClamd(h.ClamdAddr).ScanStream(reader, abortChan)
	if err != nil {
		return false, err
	}
	clean := true
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			clean = false
		}
	}
	return clean, nil
}

// ListAssets 列出页面已上传的素材，最新的在前。
func (h *AssetHandler) ListAssets(c *gin.Context) {
	page := c.Query("page")
	if !editor.ValidPage(page) {
		BadRequest(c, "invalid page")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "60"))
	if err != nil || limit <= 0 {
		limit = 60
	}
	if limit > 200 {
		limit = 200
	}

	log := middleware.LoggerFromContext(c)
	assets, err := h.store.ListByPage(c.Request.Context(), page, limit)
	if err != nil {
		log.Error("list assets", slog.Any("error", err))
		Internal(c, "failed to list assets")
		return
	}

	items := make([]gin.H, 0, len(assets))
	for _, asset := range assets {
		url, err := h.Storage.GeneratePresignedURL(c.Request.Context(), asset.ObjectKey, 10*time.Minute)
		if err != nil {
			log.Error("generate asset url", slog.String("objectKey", asset.ObjectKey), slog.Any("error", err))
			continue
		}
		items = append(items, gin.H{
			"objectKey":   asset.ObjectKey,
			"previewUrl":  url,
			"contentType": asset.ContentType,
			"size":        asset.SizeBytes,
			"createdAt":   asset.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAssetURL 返回素材的临时预签名 URL。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}
	if _, ok := pageFromAssetKey(objectKey); !ok {
		Forbidden(c, "access denied")
		return
	}
	if page := c.Query("page"); page != "" && !isValidPageAssetObjectKey(page, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	// 只为已登记的素材签名。
	if _, err := h.store.FindByObjectKey(c.Request.Context(), objectKey); err != nil {
		if errors.Is(err, database.ErrAssetNotFound) {
			NotFound(c, "asset not found")
			return
		}
		middleware.LoggerFromContext(c).Error("find asset", slog.Any("error", err))
		Internal(c, "failed to look up asset")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
