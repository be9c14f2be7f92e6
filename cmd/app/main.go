package main

import (
	"flag"
	"log"
	"os"

	"InsightHub/internal/di"
	"InsightHub/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("env=%s kafka=%v clickhouse=%v redis=%v", cfg.Environment, cfg.KafkaEnabled(), cfg.ClickHouse.Enabled, cfg.Redis.Enabled)

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
