package dto

// ==================== ACCOUNT REQUEST DTOs ====================

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum" example:"johndoe"`
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=128" example:"SecurePass123!"`
}

func (r RegisterRequest) Validate() error {
	return GetValidator().Struct(r)
}

type VerifyRequest struct {
	Code string `json:"code" validate:"required,len=8,numeric" example:"12345678"`
}

func (v VerifyRequest) Validate() error {
	return GetValidator().Struct(v)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Password string `json:"password" validate:"required" example:"SecurePass123!"`
}

func (l LoginRequest) Validate() error {
	return GetValidator().Struct(l)
}

type DeleteAccountRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (d DeleteAccountRequest) Validate() error {
	return GetValidator().Struct(d)
}

type TokenRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (t TokenRequest) Validate() error {
	return GetValidator().Struct(t)
}

type SetProfileRequest struct {
	Image string `json:"image" validate:"required,hexpayload"`
}

func (s SetProfileRequest) Validate() error {
	return GetValidator().Struct(s)
}

type ProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
}

func (p ProfileRequest) Validate() error {
	return GetValidator().Struct(p)
}

// ==================== ACCOUNT RESPONSE DTOs ====================

type RegisterResponse struct {
	Message string `json:"message" example:"You have 3 minutes to check the email."`
}

type LoginResponse struct {
	Username string   `json:"username"`
	Profile  string   `json:"profile"`
	Contacts []string `json:"contacts"`
}

type TokenResponse struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type ProfileResponse struct {
	Username string `json:"username"`
	Image    string `json:"image"`
}
