package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/frotaops/nfe-import/internal/config"
	"github.com/frotaops/nfe-import/internal/database"
	"github.com/frotaops/nfe-import/internal/importer"
	"github.com/frotaops/nfe-import/internal/logger"
	"github.com/frotaops/nfe-import/internal/server"
)

func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the database")
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(dbpool)
	importService := importer.NewService(dbManager, log)

	router := server.SetupRoutes(server.NewNotaService(dbManager, importService))
	handler := server.RequestLogger(log, router)

	log.Info().Str("port", cfg.APIPort).Msg("server starting")
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.APIPort), handler); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
