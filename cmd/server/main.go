package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"impostor-server/internal/api"
	"impostor-server/internal/auth"
	"impostor-server/internal/config"
	"impostor-server/internal/core"
	database "impostor-server/internal/db"
	"impostor-server/internal/stats"
	"impostor-server/internal/store"
	"impostor-server/internal/words"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}

	provider, err := words.Load(cfg.WordDataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load word dataset")
	}
	provider.Seed(db)

	rooms, err := store.New()
	if err != nil {
		log.Fatal().Err(err).Msg("init room store")
	}

	statsService := stats.New(db)

	engine := core.NewEngine(rooms, provider, statsService, core.EngineOptions{
		Defaults: core.RoomConfig{
			MaxPlayers:     cfg.Game.MaxPlayers,
			ImpostorCount:  cfg.Game.ImpostorCount,
			VotingTime:     cfg.Game.VotingTime,
			DiscussionTime: cfg.Game.DiscussionTime,
			Category:       cfg.Game.Category,
		},
		MinPlayers:  cfg.Game.MinPlayers,
		GracePeriod: cfg.GracePeriod,
		RevealDelay: cfg.RevealDelay,
	})

	hub := api.NewHub()
	gateway := api.NewGateway(engine, rooms, hub, cfg)
	admin := api.NewAdminAPI(auth.New(cfg.TokenSecret), statsService, cfg)

	if err := api.Serve(cfg, gateway, admin); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
