package handlers

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/blackwell-chat/relay_api/dto"
	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

type MessageHandler struct {
	accountSvc AccountServiceInterface
	gatewaySvc GatewayServiceInterface
	parserSvc  ParserServiceInterface
}

func NewMessageHandler(accountSvc AccountServiceInterface, gatewaySvc GatewayServiceInterface, parserSvc ParserServiceInterface) *MessageHandler {
	return &MessageHandler{
		accountSvc: accountSvc,
		gatewaySvc: gatewaySvc,
		parserSvc:  parserSvc,
	}
}

// @Summary Send a message
// @Description Route a message to a recipient; delivered live or queued offline
// @Tags messages
// @Accept json
// @Produce json
// @Param type query string true "Message type" Enums(text, img, video)
// @Param sendRequest body dto.SendMessageRequest true "Credentials, recipient, and message"
// @Success 200 {object} shared.Response{data=dto.SendMessageResponse}
// @Router /messages/send [post]
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	msg, err := h.parseByType(c.Query("type"), req.Message)
	if err != nil {
		return err
	}

	// The credential pair is checked against the live connection set on every
	// call; a valid account that is not connected cannot send.
	if !h.gatewaySvc.ValidateSender(req.Email, req.Password) {
		return shared.ErrBadGatewayCredentials()
	}

	delivery, err := h.gatewaySvc.Send(c.Context(), req.To, msg)
	if err != nil {
		return err
	}

	go h.accountSvc.RecordContact(req.Email, req.To)

	return shared.ResponseJSON(c, http.StatusOK, "Message routed", dto.SendMessageResponse{
		Delivery:  delivery,
		MessageID: msg.ID,
	})
}

// @Summary Delete a sent message
// @Description Route a delete action to the recipient so their client drops the message
// @Tags messages
// @Accept json
// @Produce json
// @Param deleteRequest body dto.DeleteMessageRequest true "Credentials, recipient, and message id"
// @Success 200 {object} shared.Response{data=dto.SendMessageResponse}
// @Router /messages/delete [post]
func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	var req dto.DeleteMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	if !h.gatewaySvc.ValidateSender(req.Email, req.Password) {
		return shared.ErrBadGatewayCredentials()
	}

	action := model.ActionMessage{
		ID:        req.MessageID,
		From:      req.From,
		Action:    "delete",
		CreatedAt: time.Now().Format("2006-01-02 15:04"),
	}
	contain, err := sonic.MarshalString(action)
	if err != nil {
		return err
	}

	msg := model.Message{
		ID:      uuid.New().String(),
		Type:    shared.MessageTypeAction,
		From:    req.From,
		Contain: contain,
	}

	delivery, err := h.gatewaySvc.Send(c.Context(), req.To, msg)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Delete action routed", dto.SendMessageResponse{
		Delivery:  delivery,
		MessageID: msg.ID,
	})
}

// @Summary Drain pending messages
// @Description Return and clear the authenticated account's offline mailbox
// @Tags messages
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.PendingMessagesResponse}
// @Router /messages/pending [post]
func (h *MessageHandler) Pending(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.accountSvc.PendingMessages(c.Context(), userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Pending messages", resp)
}

func (h *MessageHandler) parseByType(msgType string, msg model.Message) (model.Message, error) {
	switch msgType {
	case shared.MessageTypeText:
		return h.parserSvc.ParseText(msg)
	case shared.MessageTypeImage, shared.MessageTypeVideo:
		msg.Type = msgType
		return h.parserSvc.ParseBinary(msg)
	case "":
		return model.Message{}, shared.NewAppError(http.StatusBadRequest, shared.StatusTypeRequired, "The type query parameter is required.")
	default:
		return model.Message{}, shared.NewAppError(http.StatusBadRequest, shared.StatusTypeIncorrect, "The message type is not supported.")
	}
}
