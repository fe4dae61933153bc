package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"authgate/internal/auth"
	"authgate/internal/errors"
	"authgate/internal/service"
)

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// SignInRequest represents a credentials sign-in request.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInResponse represents a successful sign-in.
type SignInResponse struct {
	Token   string       `json:"token"`
	Session auth.Session `json:"session"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} errors.RegistrationResponse
// @Failure 400 {object} errors.RegistrationResponse
// @Failure 500 {object} errors.RegistrationResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.RegistrationResponse{
			Success: false,
			Error:   "Registration failed",
			Details: "invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.RegistrationResponse{
			Success: false,
			Error:   "Registration failed",
			Details: err.Error(),
		})
	}

	_, err := h.authService.Register(c.Request().Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		// Store rejections and anything unexpected collapse into the same
		// envelope; only the caught error's message leaks out as details.
		return c.JSON(http.StatusInternalServerError, errors.RegistrationResponse{
			Success: false,
			Error:   "Registration failed",
			Details: err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, errors.RegistrationResponse{
		Success: true,
		Message: "User created successfully",
	})
}

// SignIn godoc
// @Summary Sign in with credentials
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Credentials"
// @Success 200 {object} SignInResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, session, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			// One generic code for unknown email and wrong password alike.
			return c.JSON(http.StatusUnauthorized, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "CREDENTIALS_SIGNIN",
			})
		}
		return c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "failed to sign in",
			Code:  "SIGNIN_FAILED",
		})
	}

	return c.JSON(http.StatusOK, SignInResponse{
		Token:   token,
		Session: session,
	})
}

// Session godoc
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} auth.Session
// @Failure 401 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	claims, ok := sessionClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return c.JSON(http.StatusOK, claims.Session())
}

// Me godoc
// @Summary Current user record
// @Tags auth
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := sessionClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	user, err := h.authService.Profile(c.Request().Context(), id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusNotFound, errors.ErrorResponse{
				Error: "user not found",
				Code:  "NOT_FOUND",
			})
		}
		return c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
			Error: "database error",
			Code:  "DATABASE_ERROR",
		})
	}

	return c.JSON(http.StatusOK, user)
}

// sessionClaims extracts the verified session claims stored in the context by
// the JWT middleware's ParseTokenFunc.
func sessionClaims(c echo.Context) (*auth.SessionClaims, bool) {
	claims, ok := c.Get("user").(*auth.SessionClaims)
	if !ok || claims.UserID == "" {
		return nil, false
	}
	return claims, true
}
