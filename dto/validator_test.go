package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterRequestValidation(t *testing.T) {
	valid := RegisterRequest{Username: "alice1", Email: "a@x.com", Password: "longenough"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Username: "alice1", Password: "longenough"}},
		{"bad email", RegisterRequest{Username: "alice1", Email: "nope", Password: "longenough"}},
		{"short username", RegisterRequest{Username: "ab", Email: "a@x.com", Password: "longenough"}},
		{"short password", RegisterRequest{Username: "alice1", Email: "a@x.com", Password: "short"}},
		{"username with symbols", RegisterRequest{Username: "ali ce!", Email: "a@x.com", Password: "longenough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.req.Validate())
		})
	}
}

func TestVerifyRequestValidation(t *testing.T) {
	assert.NoError(t, VerifyRequest{Code: "12345678"}.Validate())
	assert.Error(t, VerifyRequest{Code: "1234567"}.Validate())
	assert.Error(t, VerifyRequest{Code: "abcdefgh"}.Validate())
	assert.Error(t, VerifyRequest{}.Validate())
}

func TestSetProfileRequestValidation(t *testing.T) {
	assert.NoError(t, SetProfileRequest{Image: "deadbeef"}.Validate())
	assert.Error(t, SetProfileRequest{Image: "xyz"}.Validate())
	assert.Error(t, SetProfileRequest{Image: "abc"}.Validate(), "odd-length hex")
	assert.Error(t, SetProfileRequest{}.Validate())
}

func TestSendMessageRequestValidation(t *testing.T) {
	valid := SendMessageRequest{Email: "a@x.com", Password: "p1", To: "bob"}
	valid.Message.Type = "text"
	valid.Message.From = "alice"
	valid.Message.Contain = "hi"
	assert.NoError(t, valid.Validate())

	assert.Error(t, SendMessageRequest{Email: "a@x.com", Password: "p1", To: "not a user!"}.Validate())
	assert.Error(t, SendMessageRequest{Password: "p1", To: "bob"}.Validate())
}

func TestFormatValidationErrors(t *testing.T) {
	err := RegisterRequest{Username: "ab", Email: "nope", Password: "short"}.Validate()
	resp := CreateValidationErrorResponse(err)

	assert.Equal(t, 400, resp.Code)
	assert.Len(t, resp.Errors, 3)
	for _, e := range resp.Errors {
		assert.NotEmpty(t, e.Field)
		assert.NotEmpty(t, e.Message)
	}
}
