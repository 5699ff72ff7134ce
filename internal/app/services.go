package app

import (
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/config"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/orchestrator"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation/scorer"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/services"
)

type Services struct {
	Curation services.CurationService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	orchCfg := orchestrator.DefaultConfig()
	if cfg.Parallelism > 0 {
		orchCfg.Parallelism = cfg.Parallelism
	}
	if cfg.MaxTotalBatches > 0 {
		orchCfg.MaxTotalBatches = cfg.MaxTotalBatches
	}
	if cfg.CallTimeout > 0 {
		orchCfg.CallTimeout = cfg.CallTimeout
	}

	curationService := services.NewCurationService(
		db, log,
		r.Phrase, r.Category, r.Run, r.Review,
		c.Provider, c.KB, c.Social,
		services.Tunables{
			RunDeadline:  cfg.RunDeadline,
			Orchestrator: orchCfg,
			ScorerConfig: scorer.DefaultConfig(),
		},
	)

	return Services{Curation: curationService}, nil
}
