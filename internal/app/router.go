package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/jamespheffernan/words-on-phone-sub001/internal/http"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

func wireRouter(log *logger.Logger, h Handlers) *gin.Engine {
	log.Info("Wiring router...")
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:             log,
		CurationHandler: h.Curation,
		ReviewHandler:   h.Review,
		HealthHandler:   h.Health,
	})
}
