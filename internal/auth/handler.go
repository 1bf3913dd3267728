package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/monitor-mbg/monitor_mbg/internal/apperr"
	"github.com/monitor-mbg/monitor_mbg/internal/user"
)

// ClaimsLocalKey is where the request guard stores the decoded token claims.
const ClaimsLocalKey = "auth_claims"

// Handler exposes the authentication endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds the auth handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerRequest struct {
	Name            string `json:"name"`
	Role            string `json:"role"`
	UniqueCode      string `json:"unique_code"`
	Password        string `json:"password"`
	Phone           string `json:"phone"`
	InstitutionName string `json:"institution_name"`
}

type loginRequest struct {
	UniqueCode string `json:"unique_code"`
	Password   string `json:"password"`
}

type authResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Register creates an account and returns a token plus the created record.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		return apperr.BadRequest("Invalid role")
	}

	token, created, err := h.svc.Register(c.UserContext(), RegisterInput{
		Name:            req.Name,
		Role:            role,
		UniqueCode:      req.UniqueCode,
		Password:        req.Password,
		Phone:           req.Phone,
		InstitutionName: req.InstitutionName,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(authResponse{Token: token, User: created})
}

// Login authenticates by unique code and password.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	token, account, err := h.svc.Login(c.UserContext(), req.UniqueCode, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(authResponse{Token: token, User: account})
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type sendOTPResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ReferenceID string `json:"referenceId"`
	ExpiresIn   int    `json:"expiresIn"`
}

// SendOTP generates and delivers a verification code.
func (h *Handler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	referenceID, expiresIn, err := h.svc.SendOTP(c.UserContext(), req.Phone)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(sendOTPResponse{
		Success:     true,
		Message:     "OTP sent successfully",
		ReferenceID: referenceID,
		ExpiresIn:   expiresIn,
	})
}

type verifyOTPRequest struct {
	ReferenceID string `json:"referenceId"`
	Phone       string `json:"phone"`
	Code        string `json:"code"`
}

type verifyOTPResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Verified bool   `json:"verified"`
}

// VerifyOTP checks a submitted code against the stored attempt.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}

	verified, err := h.svc.VerifyOTP(c.UserContext(), req.ReferenceID, req.Phone, req.Code)
	if err != nil {
		return err
	}
	if !verified {
		return apperr.BadRequest("Invalid OTP code")
	}

	return c.Status(http.StatusOK).JSON(verifyOTPResponse{
		Success:  true,
		Message:  "OTP verified successfully",
		Verified: true,
	})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals(ClaimsLocalKey).(*Claims)
	if !ok {
		return apperr.Unauthorized("Invalid token")
	}
	id, err := claims.UserID()
	if err != nil {
		return apperr.Unauthorized("Invalid token")
	}

	account, err := h.svc.Me(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(account)
}
