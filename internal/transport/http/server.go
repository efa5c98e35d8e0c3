package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"habitarc/internal/domain/models"
	jwtlib "habitarc/internal/lib/jwt"
	"habitarc/internal/lib/logger/sl"
	"habitarc/internal/services/auth"
	democtl "habitarc/internal/services/demo_service"
	tokensvc "habitarc/internal/services/token_service"
	"habitarc/internal/transport/http/dto/request"
	"habitarc/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Register(ctx context.Context, email, password, name string, guestToken *uuid.UUID) (*models.TokenPair, error)
	Guest(ctx context.Context, timezone string) (*models.TokenPair, uuid.UUID, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	UserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type TokenService interface {
	RefreshTokens(ctx context.Context, rawToken string) (*models.TokenPair, error)
	VerifyAccess(tokenString string) (*jwtlib.Claims, error)
}

type DemoService interface {
	StartDemo(ctx context.Context, timezone string) (*democtl.DemoSession, error)
	Status(ctx context.Context, userID uuid.UUID) (*democtl.DemoStatus, error)
	Convert(ctx context.Context, userID uuid.UUID, email, password, name string) (*models.TokenPair, error)
}

type Routers struct {
	log *slog.Logger

	AuthService  AuthService
	TokenService TokenService
	DemoService  DemoService
}

func NewRouter(log *slog.Logger, authService AuthService, tokenService TokenService, demoService DemoService) *Routers {
	return &Routers{
		log:          log,
		AuthService:  authService,
		TokenService: tokenService,
		DemoService:  demoService,
	}
}

func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.LoginRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid login request", slog.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	pair, err := r.AuthService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Warn("login rejected", slog.String("email", req.Email))
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
		}

		log.Error("login failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pair))
}

func (r *Routers) Register(c echo.Context) error {
	const op = "http.routers.Register"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.RegisterRequest

	if err := c.Bind(&req); err != nil {
		log.Error("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid register request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var guestToken *uuid.UUID
	if req.GuestToken != "" {
		parsed, err := uuid.Parse(req.GuestToken)
		if err != nil {
			return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
		}
		guestToken = &parsed
	}

	pair, err := r.AuthService.Register(c.Request().Context(), req.Email, req.Password, req.Name, guestToken)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			log.Warn("user already exists", slog.String("email", req.Email))
			return c.JSON(http.StatusConflict, response.ErrUserAlreadyExists)
		}

		log.Error("registration failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(pair))
}

func (r *Routers) Refresh(c echo.Context) error {
	const op = "http.routers.Refresh"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.RefreshRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	pair, err := r.TokenService.RefreshTokens(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, tokensvc.ErrInvalidToken) {
			log.Warn("refresh rejected")
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
		}

		log.Error("refresh failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pair))
}

func (r *Routers) Guest(c echo.Context) error {
	const op = "http.routers.Guest"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.GuestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	pair, guestToken, err := r.AuthService.Guest(c.Request().Context(), req.Timezone)
	if err != nil {
		log.Error("guest session failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(map[string]interface{}{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"guest_token":   guestToken.String(),
	}))
}

func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	log := r.log.With(
		slog.String("op", op),
	)

	userID, ok := UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	if err := r.AuthService.Logout(c.Request().Context(), userID); err != nil {
		log.Error("logout failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.Response{
		Status:  "success",
		Message: "logged out",
	})
}

func (r *Routers) Me(c echo.Context) error {
	const op = "http.routers.Me"

	log := r.log.With(
		slog.String("op", op),
	)

	userID, ok := UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	user, err := r.AuthService.UserByID(c.Request().Context(), userID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(user))
}

func (r *Routers) DemoStart(c echo.Context) error {
	const op = "http.routers.DemoStart"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.DemoStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	session, err := r.DemoService.StartDemo(c.Request().Context(), req.Timezone)
	if err != nil {
		if errors.Is(err, democtl.ErrDemoDisabled) {
			return c.JSON(http.StatusNotFound, response.ErrDemoUnavailable)
		}

		log.Error("failed to start demo session", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(session))
}

func (r *Routers) DemoStatus(c echo.Context) error {
	const op = "http.routers.DemoStatus"

	log := r.log.With(
		slog.String("op", op),
	)

	userID, ok := UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	status, err := r.DemoService.Status(c.Request().Context(), userID)
	if err != nil {
		log.Error("failed to load demo status", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(status))
}

func (r *Routers) DemoConvert(c echo.Context) error {
	const op = "http.routers.DemoConvert"

	log := r.log.With(
		slog.String("op", op),
	)

	userID, ok := UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	var req request.ConvertDemoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	pair, err := r.DemoService.Convert(c.Request().Context(), userID, req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, democtl.ErrNotDemoUser):
			return c.JSON(http.StatusForbidden, response.ErrorResponseWithDetails("not_demo_account", "Only demo accounts can be converted"))
		case errors.Is(err, democtl.ErrEmailTaken):
			return c.JSON(http.StatusConflict, response.ErrUserAlreadyExists)
		}

		log.Error("demo conversion failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pair))
}
