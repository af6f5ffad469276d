package main

import (
	"log"

	"github.com/fleetwatch/safety-backend-go/internal/analysis"
	"github.com/fleetwatch/safety-backend-go/internal/analysis/insight"
	"github.com/fleetwatch/safety-backend-go/internal/api"
	"github.com/fleetwatch/safety-backend-go/internal/config"
	"github.com/fleetwatch/safety-backend-go/internal/database"
	"github.com/fleetwatch/safety-backend-go/internal/handler"
	"github.com/fleetwatch/safety-backend-go/internal/repository"
	"github.com/fleetwatch/safety-backend-go/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatal("Failed to initialize schema:", err)
	}

	// Without a configured endpoint the generator runs its deterministic
	// fallback only
	var client insight.Client
	if cfg.InsightEndpoint != "" {
		client = insight.NewHTTPClient(cfg.InsightEndpoint, cfg.InsightAPIKey,
			cfg.InsightModel, cfg.InsightTimeout)
		log.Printf("Insight generation via %s (%s)", cfg.InsightEndpoint, cfg.InsightModel)
	} else {
		log.Printf("No insight endpoint configured, using rule-based insights")
	}

	engine := analysis.NewEngine(insight.NewGenerator(client))

	signalRepo := repository.NewSignalRepository(db)
	analyticsService := service.NewAnalyticsService(engine, signalRepo)

	router := api.SetupRouter(
		handler.NewAnalyticsHandler(analyticsService),
		handler.NewSignalHandler(analyticsService),
	)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
