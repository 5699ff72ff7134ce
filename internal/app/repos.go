package app

import (
	"gorm.io/gorm"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/data/repos"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type Repos struct {
	Phrase   repos.PhraseRepo
	Category repos.CategoryRepo
	Run      repos.RunRepo
	Review   repos.ReviewRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Phrase:   repos.NewPhraseRepo(db, log),
		Category: repos.NewCategoryRepo(db, log),
		Run:      repos.NewRunRepo(db, log),
		Review:   repos.NewReviewRepo(db, log),
	}
}
