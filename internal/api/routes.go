package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"pagecraft/internal/config"
	"pagecraft/internal/database"
	"pagecraft/internal/editor"
	"pagecraft/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
// asynqClient、redisClient、assetStore 与 storageClient 均可为空，对应的路由不会注册。
func RegisterRoutes(
	router *gin.Engine,
	manager *editor.Manager,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	assetStore *database.AssetStore,
	storageClient *storage.Client,
	cfg config.Config,
) {
	var enqueuer taskEnqueuer
	if asynqClient != nil {
		enqueuer = asynqClient
	}

	pageHandler := NewPageHandler(manager, enqueuer)
	blockHandler := NewBlockHandler(manager)
	templateHandler := NewTemplateHandler()

	v1 := router.Group("/v1")
	{
		v1.GET("/block-types", blockHandler.ListBlockTypes)
		v1.GET("/templates", templateHandler.ListTemplates)

		pageGroup := v1.Group("/pages/:page")
		{
			pageGroup.GET("", pageHandler.GetPage)
			pageGroup.PATCH("/settings", pageHandler.UpdatePageSettings)
			pageGroup.POST("/reset", pageHandler.ResetPage)
			pageGroup.POST("/archive", pageHandler.ArchivePage)

			pageGroup.POST("/blocks", blockHandler.AddBlock)
			pageGroup.PATCH("/blocks/:id/content", blockHandler.UpdateContent)
			pageGroup.PATCH("/blocks/:id/settings", blockHandler.UpdateSettings)
			pageGroup.DELETE("/blocks/:id", blockHandler.DeleteBlock)
			pageGroup.POST("/blocks/:id/move", blockHandler.MoveBlock)
			pageGroup.POST("/blocks/:id/duplicate", blockHandler.DuplicateBlock)

			pageGroup.PUT("/selection", pageHandler.SelectBlock)
			pageGroup.DELETE("/selection", pageHandler.Deselect)
			pageGroup.PATCH("/selection/content", pageHandler.EditSelectedContent)
			pageGroup.PATCH("/selection/settings", pageHandler.EditSelectedSettings)
		}

		if redisClient != nil {
			wsHandler := NewWsHandler(redisClient, logger, cfg.API.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		if assetStore != nil && storageClient != nil {
			var counter redisRateCounter
			if redisClient != nil {
				counter = redisClient
			}
			assetHandler := NewAssetHandler(assetStore, storageClient, counter, cfg.Assets.ClamdAddr, cfg.Assets.MaxBytes, cfg.Assets.AllowedMIMEs)

			assetGroup := v1.Group("/assets")
			{
				assetGroup.GET("", assetHandler.ListAssets)
				assetGroup.POST("/upload", assetHandler.UploadAsset)
				assetGroup.GET("/view", assetHandler.GetAssetURL)
			}
		}
	}
}
