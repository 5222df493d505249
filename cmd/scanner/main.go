package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"signalscan/internal/app"
	"signalscan/internal/handler/ops"
	"signalscan/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// .env is optional; explicit environment always wins.
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	a.SetHTTPHandler(ops.New(a.Logger(), a.Board(), a.Tier1(), a.Halts(), a.News()))

	if err := a.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
