package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/jamespheffernan/words-on-phone-sub001/internal/http/handlers"
	httpMW "github.com/jamespheffernan/words-on-phone-sub001/internal/http/middleware"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	CurationHandler *httpH.CurationHandler
	ReviewHandler   *httpH.ReviewHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.CurationHandler != nil {
			api.POST("/batches", cfg.CurationHandler.RequestBatch)
			api.GET("/runs", cfg.CurationHandler.ListRuns)

			api.GET("/categories", cfg.CurationHandler.ListCategories)
			api.GET("/categories/:name/stats", cfg.CurationHandler.GetCategoryStats)

			api.GET("/phrases/export", cfg.CurationHandler.ExportCorpus)
			api.POST("/phrases/import", cfg.CurationHandler.ImportCorpus)
			api.POST("/phrases/:id/override", cfg.CurationHandler.OverridePhrase)
			api.DELETE("/phrases/:id", cfg.CurationHandler.DeletePhrase)
		}

		if cfg.ReviewHandler != nil {
			api.GET("/review", cfg.ReviewHandler.ListPending)
			api.POST("/review/:id/resolve", cfg.ReviewHandler.Resolve)
		}
	}

	return r
}
