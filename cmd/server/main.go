package main

import (
	"fmt"
	"os"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	addr := ":" + application.Cfg.Port
	application.Log.Info("Starting server", "addr", addr)
	if err := application.Router.Run(addr); err != nil {
		application.Log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
