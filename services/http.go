package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/blackwell-chat/relay_api/services/handlers"
	"github.com/blackwell-chat/relay_api/shared"
)

// routeLimiter and tokenAuth are provided by the middleware layer at wiring
// time; declaring them here keeps the import direction one-way.
type routeLimiter interface {
	Limit(endpoint string) fiber.Handler
}

type tokenAuth interface {
	RequiredAuth() fiber.Handler
}

type HttpService struct {
	context.DefaultService

	gatewaySvc    *GatewayService
	monitoringSvc *MonitoringService

	limiter routeLimiter
	auth    tokenAuth

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

// SetMiddleware attaches the limiter and auth services, called from runtime
// wiring before the container starts.
func (svc *HttpService) SetMiddleware(limiter routeLimiter, auth tokenAuth) {
	svc.limiter = limiter
	svc.auth = auth
}

func (svc *HttpService) Start() error {
	svc.gatewaySvc = svc.Service(GATEWAY_SVC).(*GatewayService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)
	accountSvc := svc.Service(ACCOUNT_SVC).(*AccountService)
	parserSvc := svc.Service(PARSER_SVC).(*ParserService)

	app := fiber.New(fiber.Config{
		AppName:      "BlackWell API",
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: svc.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(MonitoringMiddleware(svc.monitoringSvc))

	authHandler := handlers.NewAuthHandler(accountSvc)
	userHandler := handlers.NewUserHandler(accountSvc)
	messageHandler := handlers.NewMessageHandler(accountSvc, svc.gatewaySvc, parserSvc)

	app.Get("/ping", svc.ping)
	app.Get("/", svc.limiter.Limit("root"), svc.root)

	app.Post("/register", svc.limiter.Limit("register"), authHandler.Register)
	app.Post("/verify", svc.limiter.Limit("verify"), authHandler.Verify)
	app.Post("/login", svc.limiter.Limit("login"), authHandler.Login)

	user := app.Group("/user")
	user.Post("/delete", svc.limiter.Limit("user_delete"), userHandler.Delete)
	user.Post("/token", svc.limiter.Limit("token"), userHandler.Token)
	user.Post("/set-profile", svc.limiter.Limit("set_profile"), svc.auth.RequiredAuth(), userHandler.SetProfile)
	user.Post("/profile", svc.limiter.Limit("profile"), svc.auth.RequiredAuth(), userHandler.Profile)

	messages := app.Group("/messages")
	messages.Post("/send", svc.limiter.Limit("send"), messageHandler.Send)
	messages.Post("/delete", svc.limiter.Limit("message_delete"), messageHandler.Delete)
	messages.Post("/pending", svc.limiter.Limit("pending"), svc.auth.RequiredAuth(), messageHandler.Pending)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/gateway", svc.limiter.Limit("gateway"), websocket.New(svc.gatewayConn))

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	svc.server = app

	log.WithField("port", svc.port).Info("HTTP server started")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// gatewayConn drives one client connection: admit, register presence, then
// block reading until the peer goes away. Inbound frames are ignored; the
// send path is HTTP.
func (svc *HttpService) gatewayConn(conn *websocket.Conn) {
	email := conn.Query("email")
	password := conn.Query("password")

	if err := svc.gatewaySvc.AuthorizeConnection(email, password); err != nil {
		RecordAdmissionRejected()
		svc.rejectConn(conn, err)
		return
	}

	client := NewClientConn(email, conn)
	svc.gatewaySvc.Connect(email, password, client)
	defer svc.gatewaySvc.Disconnect(email, client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// rejectConn keeps the connection open just long enough to deliver the
// structured rejection, then closes it.
func (svc *HttpService) rejectConn(conn *websocket.Conn, err error) {
	status := shared.StatusUnknownError
	message := err.Error()
	if appErr, ok := shared.GetAppError(err); ok {
		status = appErr.Status
		message = appErr.Message
	}

	_ = conn.WriteJSON(shared.Response{
		Code:    http.StatusUnauthorized,
		Message: message,
		Status:  status,
	})
	_ = conn.Close()
}

// @Summary Service banner
// @Tags health
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router / [get]
func (svc *HttpService) root(c *fiber.Ctx) error {
	return shared.ResponseJSON(c, http.StatusOK, "BlackWell API", "The gateway is running.")
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")
	return shared.ResponseOK(c, "pong")
}

// handleError is the central mapping from service errors to the response
// envelope. AppErrors keep their status string; everything else is a 500.
func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseStatus(c, appErr.StatusCode, appErr.Message, appErr.Status, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseStatus(c, fiberErr.Code, fiberErr.Message, "", nil)
	}

	log.WithError(err).Error("Unhandled request error")
	return shared.ResponseInternalError(c, err)
}
