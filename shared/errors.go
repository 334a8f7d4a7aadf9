package shared

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is a failure the HTTP layer knows how to render. Services return
// these for caller mistakes; anything else is treated as a 500.
type AppError struct {
	StatusCode int
	Status     string
	Message    string
	Data       interface{}
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Status, e.Message)
}

func NewAppError(statusCode int, status, message string) *AppError {
	return &AppError{StatusCode: statusCode, Status: status, Message: message}
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ErrAdmissionRejected carries the unblock time computed by the limiter.
func ErrAdmissionRejected(retryAt time.Time) *AppError {
	return &AppError{
		StatusCode: http.StatusTooManyRequests,
		Status:     StatusTooManyRequests,
		Message:    fmt.Sprintf("Too many requests. Unlock to the: %s", retryAt.Format("15:04:05")),
		Data:       map[string]interface{}{"retry_at": retryAt.Unix()},
	}
}

func ErrCredentialsRequired() *AppError {
	return NewAppError(http.StatusUnauthorized, StatusGatewayCredentialsRequired, "Please provide an email and a password.")
}

func ErrBadGatewayCredentials() *AppError {
	return NewAppError(http.StatusUnauthorized, StatusGatewayBadCredentials, "The credentials are not valid.")
}

func ErrUnknownRecipient(username string) *AppError {
	return NewAppError(http.StatusNotFound, StatusGatewayBadUsername, fmt.Sprintf("The user %q does not exist in the gateway.", username))
}

func ErrBadCredentials() *AppError {
	return NewAppError(http.StatusUnauthorized, StatusBadCredentials, "The email or password is not valid. Or the user does not exist.")
}

func ErrIncorrectToken() *AppError {
	return NewAppError(http.StatusUnauthorized, StatusIncorrectToken, "The token is not valid.")
}

func ErrUserNotFound() *AppError {
	return NewAppError(http.StatusNotFound, StatusUserNotFound, "The user could not be found.")
}

func ErrEmailCodeInvalid() *AppError {
	return NewAppError(http.StatusUnauthorized, StatusEmailCodeInvalid, "The verification code is not valid or has expired.")
}

func ErrEmailSendFailed() *AppError {
	return NewAppError(http.StatusInternalServerError, StatusEmailSendError, "The verification email could not be sent.")
}

func ErrNotInContacts(username string) *AppError {
	return NewAppError(http.StatusForbidden, StatusNotInContacts, fmt.Sprintf("The user %q is not in your contacts.", username))
}

func ErrUserExists() *AppError {
	return NewAppError(http.StatusConflict, StatusUserExists, "The account already exists.")
}
