package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/cadencehq/outreach-backend/internal/config"
	"github.com/cadencehq/outreach-backend/internal/controller"
	"github.com/cadencehq/outreach-backend/internal/db"
	"github.com/cadencehq/outreach-backend/internal/logging"
	"github.com/cadencehq/outreach-backend/internal/repository"
	"github.com/cadencehq/outreach-backend/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logging.Setup(cfg.LogLevel)
	logger := logging.Component("server")

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	stepRepo := &repository.SequenceStepRepository{DB: conn}
	leadRepo := &repository.LeadRepository{DB: conn}
	progressRepo := &repository.LeadProgressRepository{DB: conn}
	executionRepo := &repository.ExecutionRepository{DB: conn}
	optOutRepo := &repository.OptOutRepository{DB: conn}

	campaignService := service.NewCampaignService(campaignRepo, stepRepo, leadRepo, progressRepo, executionRepo)

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		OptOuts:         optOutRepo,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Group(campaignController.Routes)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
