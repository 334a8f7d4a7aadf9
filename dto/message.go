package dto

import "github.com/blackwell-chat/relay_api/model"

// ==================== MESSAGE REQUEST DTOs ====================

// SendMessageRequest re-sends the gateway credential pair on every call; the
// router validates it against the live connection set, not the account store.
type SendMessageRequest struct {
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required"`
	To       string        `json:"to" validate:"required,min=3,max=30,alphanum"`
	Message  model.Message `json:"message" validate:"required"`
}

func (s SendMessageRequest) Validate() error {
	return GetValidator().Struct(s)
}

type DeleteMessageRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	To        string `json:"to" validate:"required,min=3,max=30,alphanum"`
	From      string `json:"from" validate:"required"`
	MessageID string `json:"message_id" validate:"required"`
}

func (d DeleteMessageRequest) Validate() error {
	return GetValidator().Struct(d)
}

// ==================== MESSAGE RESPONSE DTOs ====================

type SendMessageResponse struct {
	Delivery  string `json:"delivery" example:"delivered"`
	MessageID string `json:"message_id"`
}

type PendingMessagesResponse struct {
	Messages []model.QueuedMessage `json:"messages"`
}
