package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/utils"
)

type Config struct {
	Port          string
	Mode          string
	CategoriesYML string

	RunDeadline     time.Duration
	CallTimeout     time.Duration
	Parallelism     int
	MaxTotalBatches int
}

func LoadConfig(log *logger.Logger) Config {
	runDeadlineMS := utils.GetEnvAsInt("RUN_DEADLINE_MS", 60000, log)
	callTimeoutMS := utils.GetEnvAsInt("GENERATION_CALL_TIMEOUT_MS", 8500, log)
	return Config{
		Port:            utils.GetEnv("PORT", "8080", log),
		Mode:            utils.GetEnv("APP_MODE", "development", log),
		CategoriesYML:   utils.GetEnv("CATEGORIES_FILE", "configs/categories.yaml", log),
		RunDeadline:     time.Duration(runDeadlineMS) * time.Millisecond,
		CallTimeout:     time.Duration(callTimeoutMS) * time.Millisecond,
		Parallelism:     utils.GetEnvAsInt("GENERATION_PARALLELISM", 3, log),
		MaxTotalBatches: utils.GetEnvAsInt("GENERATION_MAX_BATCHES", 4, log),
	}
}

type categoryFile struct {
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Name          string   `yaml:"name"`
	MinTarget     int      `yaml:"min_target"`
	IdealTarget   int      `yaml:"ideal_target"`
	HardCeiling   int      `yaml:"hard_ceiling"`
	RecencyTarget *float64 `yaml:"recency_target"`
	ScoreModifier int      `yaml:"score_modifier"`
}

// LoadCategories reads a category registry file into domain rows. Quota
// targets default sensibly; a ceiling of zero stays informational.
func LoadCategories(path string) ([]domain.Category, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	var cf categoryFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if len(cf.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s lists no categories", path)
	}

	seen := map[string]bool{}
	out := make([]domain.Category, 0, len(cf.Categories))
	for _, e := range cf.Categories {
		if e.Name == "" {
			return nil, fmt.Errorf("categories file %s: category with empty name", path)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("categories file %s: duplicate category %q", path, e.Name)
		}
		seen[e.Name] = true
		if e.ScoreModifier < -5 || e.ScoreModifier > 15 {
			return nil, fmt.Errorf("category %q: score modifier %d outside [-5, 15]", e.Name, e.ScoreModifier)
		}
		recency := 0.1
		if e.RecencyTarget != nil {
			recency = *e.RecencyTarget
		}
		if recency < 0 || recency > 1 {
			return nil, fmt.Errorf("category %q: recency target %v outside [0, 1]", e.Name, recency)
		}
		out = append(out, domain.Category{
			Name:          e.Name,
			MinTarget:     e.MinTarget,
			IdealTarget:   e.IdealTarget,
			HardCeiling:   e.HardCeiling,
			RecencyTarget: recency,
			ScoreModifier: e.ScoreModifier,
		})
	}
	return out, nil
}
