package app

import (
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/clients/openai"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/clients/reddit"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/clients/wikipedia"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/curation"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
)

type Clients struct {
	Provider curation.GenerationProvider
	KB       curation.KnowledgeBaseLookup
	Social   curation.SocialRelevanceLookup
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis (optional lookup cache)
	var rdb *goredis.Client
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		log.Info("Redis lookup cache enabled", "addr", addr)
	}

	provider, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	return Clients{
		Provider: provider,
		KB:       wikipedia.NewClient(log, rdb),
		Social:   reddit.NewClient(log),
	}, nil
}
