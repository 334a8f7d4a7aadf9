package services

import (
	"regexp"
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"

	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

// ParserService is the shape gate in front of the gateway: nothing reaches
// routing, the mailbox, or a live stream without passing it first.
type ParserService struct {
	context.DefaultService
}

const PARSER_SVC = "parser_svc"

// Binary payloads (hex decoded) are capped at 5 MiB.
const maxBinaryPayloadBytes = 5 * 1024 * 1024

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

func (svc ParserService) Id() string {
	return PARSER_SVC
}

func (svc *ParserService) Start() error {
	return nil
}

// ParseText validates a plain text message and stamps a fresh server-side ID.
// Client-supplied IDs are never trusted.
func (svc *ParserService) ParseText(msg model.Message) (model.Message, error) {
	if msg.Type != shared.MessageTypeText {
		return model.Message{}, shared.NewAppError(400, shared.StatusTypeIncorrect, "The type of message is not valid.")
	}
	if strings.TrimSpace(msg.From) == "" || msg.Contain == "" {
		return model.Message{}, shared.NewAppError(400, shared.StatusBadSyntax, "The message is not valid. Please use the correct syntax.")
	}

	msg.ID = uuid.New().String()
	msg.Read = false
	return msg, nil
}

// ParseBinary validates an image or video message: hex payload, size ceiling,
// fresh ID.
func (svc *ParserService) ParseBinary(msg model.Message) (model.Message, error) {
	if msg.Type != shared.MessageTypeImage && msg.Type != shared.MessageTypeVideo {
		return model.Message{}, shared.NewAppError(400, shared.StatusTypeIncorrect, "The type of message is not valid.")
	}
	if strings.TrimSpace(msg.From) == "" || msg.Contain == "" {
		return model.Message{}, shared.NewAppError(400, shared.StatusBadSyntax, "The message is not valid. Please use the correct syntax.")
	}

	if !svc.IsHex(msg.Contain) || !svc.CheckPayloadSize(msg.Contain) {
		status := shared.StatusBadImageSize
		detail := "The size of the image is not valid or the image is not hex."
		if msg.Type == shared.MessageTypeVideo {
			status = shared.StatusBadVideoSize
			detail = "The size of the video is not valid or the video is not hex."
		}
		return model.Message{}, shared.NewAppError(400, status, detail)
	}

	msg.ID = uuid.New().String()
	msg.Read = false
	return msg, nil
}

func (svc *ParserService) IsHex(s string) bool {
	return s != "" && len(s)%2 == 0 && hexPattern.MatchString(s)
}

// CheckPayloadSize bounds the decoded payload, two hex chars per byte.
func (svc *ParserService) CheckPayloadSize(hexPayload string) bool {
	return len(hexPayload)/2 <= maxBinaryPayloadBytes
}
