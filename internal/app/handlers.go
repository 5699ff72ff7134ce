package app

import (
	httpH "github.com/jamespheffernan/words-on-phone-sub001/internal/http/handlers"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type Handlers struct {
	Curation *httpH.CurationHandler
	Review   *httpH.ReviewHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Curation: httpH.NewCurationHandler(log, s.Curation),
		Review:   httpH.NewReviewHandler(log, s.Curation),
		Health:   httpH.NewHealthHandler(),
	}
}
