package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/blackwell-chat/relay_api/dto"
	"github.com/blackwell-chat/relay_api/shared"
)

type UserHandler struct {
	accountSvc AccountServiceInterface
}

func NewUserHandler(accountSvc AccountServiceInterface) *UserHandler {
	return &UserHandler{accountSvc: accountSvc}
}

// @Summary Delete account
// @Description Remove the account, its contacts, and any queued messages
// @Tags user
// @Accept json
// @Produce json
// @Param deleteRequest body dto.DeleteAccountRequest true "Account credentials"
// @Success 200 {object} shared.Response{data=nil}
// @Router /user/delete [post]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	if err := h.accountSvc.Delete(c.Context(), req); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Account deleted", nil)
}

// @Summary Issue a session token
// @Description Exchange email and password for a bearer token
// @Tags user
// @Accept json
// @Produce json
// @Param tokenRequest body dto.TokenRequest true "Account credentials"
// @Success 200 {object} shared.Response{data=dto.TokenResponse}
// @Router /user/token [post]
func (h *UserHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.accountSvc.Token(c.Context(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Token issued", resp)
}

// @Summary Set profile image
// @Description Store a hex-encoded profile image for the authenticated account
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param profileRequest body dto.SetProfileRequest true "Hex-encoded image"
// @Success 200 {object} shared.Response{data=nil}
// @Router /user/set-profile [post]
func (h *UserHandler) SetProfile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.SetProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	if err := h.accountSvc.SetProfile(c.Context(), userID, req); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Profile updated", nil)
}

// @Summary Fetch a user's profile
// @Description Contacts-only visibility; your own profile is always visible
// @Tags user
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param profileRequest body dto.ProfileRequest true "Target username"
// @Success 200 {object} shared.Response{data=dto.ProfileResponse}
// @Router /user/profile [post]
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseBadRequest(c, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.accountSvc.Profile(c.Context(), userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Profile", resp)
}
