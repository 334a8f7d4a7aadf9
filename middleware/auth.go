package middleware

import (
	"errors"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/blackwell-chat/relay_api/services"
	"github.com/blackwell-chat/relay_api/shared"
)

type AuthMiddleware struct {
	context.DefaultService

	sqlSvc *services.PostgresService
	jwtSvc *services.JWTService
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.sqlSvc = ctx.Service(services.POSTGRES_SVC).(*services.PostgresService)
	svc.jwtSvc = ctx.Service(services.JWT_SVC).(*services.JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	return nil
}

// RequiredAuth verifies the bearer token and stashes the account ID in the
// request context. The token must still resolve to an existing account; a
// deleted account's token is dead immediately.
func (svc *AuthMiddleware) RequiredAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := svc.jwtSvc.ExtractTokenFromHeader(c.Get("Authorization"))
		if err != nil {
			return shared.ErrIncorrectToken()
		}

		userID, err := svc.jwtSvc.VerifyJWTToken(token)
		if err != nil || userID == "" {
			return shared.ErrIncorrectToken()
		}

		if _, err := svc.sqlSvc.GetAccountByID(userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrIncorrectToken()
			}
			return err
		}

		c.Locals(shared.UserID, userID)
		return c.Next()
	}
}
