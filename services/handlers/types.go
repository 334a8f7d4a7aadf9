package handlers

import (
	"context"

	"github.com/blackwell-chat/relay_api/dto"
	"github.com/blackwell-chat/relay_api/model"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Verify(ctx context.Context, req dto.VerifyRequest) (*dto.LoginResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Delete(ctx context.Context, req dto.DeleteAccountRequest) error
	Token(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error)
	SetProfile(ctx context.Context, userID string, req dto.SetProfileRequest) error
	Profile(ctx context.Context, userID string, req dto.ProfileRequest) (*dto.ProfileResponse, error)
	PendingMessages(ctx context.Context, userID string) (*dto.PendingMessagesResponse, error)
	RecordContact(senderEmail, recipientUsername string)
}

type GatewayServiceInterface interface {
	ValidateSender(email, password string) bool
	Send(ctx context.Context, toUsername string, msg model.Message) (string, error)
}

type ParserServiceInterface interface {
	ParseText(msg model.Message) (model.Message, error)
	ParseBinary(msg model.Message) (model.Message, error)
}
