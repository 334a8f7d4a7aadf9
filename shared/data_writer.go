package shared

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status,omitempty"`
	Date    string      `json:"date,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

var JSONAPI = sonic.Config{
	UseNumber:            true,
	EscapeHTML:           false,
	SortMapKeys:          false,
	CompactMarshaler:     true,
	NoQuoteTextMarshaler: true,
	NoNullSliceOrMap:     true,
}.Froze()

func stamp() string {
	return time.Now().Format("2006-01-02 15:04")
}

func ResponseJSON(c *fiber.Ctx, httpCode int, message string, data interface{}) error {
	return responseStatus(c, httpCode, message, StatusOK, data)
}

// ResponseStatus renders the envelope with an explicit status string from
// shared/const.go instead of the default "ok".
func ResponseStatus(c *fiber.Ctx, httpCode int, message, status string, data interface{}) error {
	return responseStatus(c, httpCode, message, status, data)
}

func responseStatus(c *fiber.Ctx, httpCode int, message, status string, data interface{}) error {
	body, err := JSONAPI.Marshal(Response{
		Code:    httpCode,
		Message: message,
		Status:  status,
		Date:    stamp(),
		Data:    data,
	})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(httpCode).Send(body)
}

func ResponseOK(c *fiber.Ctx, data interface{}) error {
	return ResponseJSON(c, fiber.StatusOK, "Success", data)
}

func ResponseNotFound(c *fiber.Ctx) error {
	return responseStatus(c, fiber.StatusNotFound, "Not Found", "", nil)
}

func ResponseBadRequest(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "Bad Request"
	}
	return responseStatus(c, fiber.StatusBadRequest, message, StatusBadSyntax, nil)
}

func ResponseInternalError(c *fiber.Ctx, err error) error {
	return responseStatus(c, fiber.StatusInternalServerError, "Internal Server Error", StatusUnknownError, err.Error())
}
