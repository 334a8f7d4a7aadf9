package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blackwell-chat/relay_api/dto"
	"github.com/blackwell-chat/relay_api/shared"
)

type AuthHandler struct {
	accountSvc AccountServiceInterface
}

func NewAuthHandler(accountSvc AccountServiceInterface) *AuthHandler {
	return &AuthHandler{accountSvc: accountSvc}
}

// @Summary Register a new account
// @Description Store a pending registration and email an 8-digit verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param registerRequest body dto.RegisterRequest true "Registration details"
// @Success 201 {object} shared.Response{data=dto.RegisterResponse}
// @Router /register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.accountSvc.Register(c.Context(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Check your email for the verification code", resp)
}

// @Summary Verify a registration code
// @Description Promote a pending registration into a permanent account
// @Tags auth
// @Accept json
// @Produce json
// @Param verifyRequest body dto.VerifyRequest true "8-digit verification code"
// @Success 201 {object} shared.Response{data=dto.LoginResponse}
// @Router /verify [post]
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.accountSvc.Verify(c.Context(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Account created", resp)
}

// @Summary Login
// @Description Authenticate with email and password, returns the profile snapshot
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body dto.LoginRequest true "Login credentials"
// @Success 200 {object} shared.Response{data=dto.LoginResponse}
// @Router /login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.accountSvc.Login(c.Context(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}
