package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/app"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/services"
)

func main() {
	var category string
	var count int
	var mode string
	flag.StringVar(&category, "category", "", "category to generate for")
	flag.IntVar(&count, "count", 20, "target number of admitted phrases")
	flag.StringVar(&mode, "mode", "auto", "auto or manual")
	flag.Parse()

	if category == "" {
		fmt.Println("usage: curate -category <name> [-count N] [-mode auto|manual]")
		os.Exit(2)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	res, err := application.Services.Curation.RequestBatch(context.Background(), services.BatchRequest{
		Category:    category,
		TargetCount: count,
		Mode:        mode,
	})
	if err != nil {
		application.Log.Error("Batch request failed", "category", category, "error", err)
		os.Exit(1)
	}

	fmt.Printf("run %s: state=%s admitted=%d/%d batches=%d failures=%d\n",
		res.Run.ID, res.Run.State, res.Run.AdmittedCount, res.Run.TargetCount,
		res.Run.BatchesDispatched, res.Run.ProviderFailures)
	for _, p := range res.Admitted {
		fmt.Printf("  %-30s score=%d difficulty=%v\n", p.Text, p.Score, deref(p.Difficulty))
	}
}

func deref[T any](p *T) any {
	if p == nil {
		return "-"
	}
	return *p
}
