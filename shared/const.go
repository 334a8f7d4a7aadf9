package shared

const (
	UserID = "user_id"

	// Status codes surfaced in response envelopes. The relay's clients key on
	// these strings, so they are part of the wire contract.
	StatusOK           = "ok"
	StatusUnknownError = "unknown error"

	StatusEmailSendError   = "email send error"
	StatusEmailCodeInvalid = "invalid email code"
	StatusIncorrectToken   = "incorrect token for the user"
	StatusUserNotFound     = "user not found"
	StatusUserExists       = "user exists"

	StatusBadCredentials = "email and password is not valid"
	StatusBadSyntax      = "incorrect syntax"

	StatusGatewayCredentialsRequired = "required email and password in the gateway"
	StatusGatewayBadCredentials      = "incorrect credentials in the gateway"
	StatusGatewayBadUsername         = "incorrect username in the gateway"

	StatusTypeRequired  = "required valid type of message"
	StatusTypeIncorrect = "incorrect type of message"

	StatusBadImageSize = "incorrect size image"
	StatusBadVideoSize = "incorrect size video"

	StatusNotInContacts = "invalid user in contacts"

	StatusTooManyRequests = "too many requests"

	MessageTypeText   = "text"
	MessageTypeImage  = "img"
	MessageTypeVideo  = "video"
	MessageTypeAction = "action"

	// Routing outcomes for a send call.
	DeliveryDelivered = "delivered"
	DeliveryQueued    = "queued"
)
