package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/blackwell-chat/relay_api/middleware"
	"github.com/blackwell-chat/relay_api/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	rateLimitSvc := &middleware.RateLimitMiddleware{}
	authSvc := &middleware.AuthMiddleware{}
	janitorSvc := &services.JanitorService{}
	httpSvc := &services.HttpService{}

	httpSvc.SetMiddleware(rateLimitSvc, authSvc)
	janitorSvc.SetSweeper(rateLimitSvc)

	ctx, err := context.NewCtx(
		&services.RedisService{},
		&services.PostgresService{},
		&services.JWTService{},
		&services.EmailService{},
		&services.ParserService{},
		&services.MailboxService{},
		&services.GatewayService{},
		&services.AccountService{},
		&services.MonitoringService{},
		rateLimitSvc,
		authSvc,
		janitorSvc,

		httpSvc,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service container")
		return
	}

	if err := ctx.Run(); err != nil {
		log.Fatal().Err(err).Msg("Service container stopped")
		return
	}
}
