package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"habitarc/internal/domain/models"
	jwtlib "habitarc/internal/lib/jwt"
	"habitarc/internal/services/auth"
	democtl "habitarc/internal/services/demo_service"
	tokensvc "habitarc/internal/services/token_service"
	httprouters "habitarc/internal/transport/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if pair := args.Get(0); pair != nil {
		return pair.(*models.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string, guestToken *uuid.UUID) (*models.TokenPair, error) {
	args := m.Called(ctx, email, password, name, guestToken)
	if pair := args.Get(0); pair != nil {
		return pair.(*models.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Guest(ctx context.Context, timezone string) (*models.TokenPair, uuid.UUID, error) {
	args := m.Called(ctx, timezone)
	if pair := args.Get(0); pair != nil {
		return pair.(*models.TokenPair), args.Get(1).(uuid.UUID), args.Error(2)
	}
	return nil, uuid.Nil, args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthService) UserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) RefreshTokens(ctx context.Context, rawToken string) (*models.TokenPair, error) {
	args := m.Called(ctx, rawToken)
	if pair := args.Get(0); pair != nil {
		return pair.(*models.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenService) VerifyAccess(tokenString string) (*jwtlib.Claims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*jwtlib.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDemoService struct {
	mock.Mock
}

func (m *MockDemoService) StartDemo(ctx context.Context, timezone string) (*democtl.DemoSession, error) {
	args := m.Called(ctx, timezone)
	if session := args.Get(0); session != nil {
		return session.(*democtl.DemoSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDemoService) Status(ctx context.Context, userID uuid.UUID) (*democtl.DemoStatus, error) {
	args := m.Called(ctx, userID)
	if status := args.Get(0); status != nil {
		return status.(*democtl.DemoStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDemoService) Convert(ctx context.Context, userID uuid.UUID, email, password, name string) (*models.TokenPair, error) {
	args := m.Called(ctx, userID, email, password, name)
	if pair := args.Get(0); pair != nil {
		return pair.(*models.TokenPair), args.Error(1)
	}
	return nil, args.Error(1)
}

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type fixture struct {
	echo    *echo.Echo
	routers *httprouters.Routers
	auth    *MockAuthService
	tokens  *MockTokenService
	demo    *MockDemoService
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := new(MockAuthService)
	tokenSvc := new(MockTokenService)
	demoSvc := new(MockDemoService)

	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}

	return &fixture{
		echo:    e,
		routers: httprouters.NewRouter(log, authSvc, tokenSvc, demoSvc),
		auth:    authSvc,
		tokens:  tokenSvc,
		demo:    demoSvc,
	}
}

func (f *fixture) request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return f.echo.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var testPair = &models.TokenPair{
	AccessToken:  "access",
	RefreshToken: "refresh",
	ExpiresIn:    900,
}

func TestLogin_Success(t *testing.T) {
	f := newFixture()
	f.auth.On("Login", mock.Anything, "user@example.com", "password123").Return(testPair, nil)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/login",
		`{"email":"user@example.com","password":"password123"}`)

	require.NoError(t, f.routers.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "access", data["access_token"])
	assert.Equal(t, "refresh", data["refresh_token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture()
	f.auth.On("Login", mock.Anything, "user@example.com", "wrong-password").
		Return(nil, auth.ErrInvalidCredentials)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/login",
		`{"email":"user@example.com","password":"wrong-password"}`)

	require.NoError(t, f.routers.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "authentication_failed", body["error"])
	// No detail may leak whether the account exists.
	assert.NotContains(t, rec.Body.String(), "details")
}

func TestLogin_ValidationFailure(t *testing.T) {
	f := newFixture()

	c, rec := f.request(http.MethodPost, "/api/v1/auth/login",
		`{"email":"not-an-email","password":"short"}`)

	require.NoError(t, f.routers.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture()
	f.auth.On("Register", mock.Anything, "taken@example.com", "password123", "Name", (*uuid.UUID)(nil)).
		Return(nil, auth.ErrUserExists)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/register",
		`{"email":"taken@example.com","password":"password123","name":"Name"}`)

	require.NoError(t, f.routers.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "user_already_exists", body["error"])
}

func TestRegister_PassesGuestToken(t *testing.T) {
	f := newFixture()
	guestToken := uuid.New()

	f.auth.On("Register", mock.Anything, "new@example.com", "password123", "Name",
		mock.MatchedBy(func(id *uuid.UUID) bool { return id != nil && *id == guestToken })).
		Return(testPair, nil)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/register",
		`{"email":"new@example.com","password":"password123","name":"Name","guest_token":"`+guestToken.String()+`"}`)

	require.NoError(t, f.routers.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	f.auth.AssertExpectations(t)
}

func TestRefresh_InvalidToken(t *testing.T) {
	f := newFixture()
	f.tokens.On("RefreshTokens", mock.Anything, "stolen-token").
		Return(nil, tokensvc.ErrInvalidToken)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"stolen-token"}`)

	require.NoError(t, f.routers.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "authentication_failed", body["error"])
}

func TestRefresh_Success(t *testing.T) {
	f := newFixture()
	f.tokens.On("RefreshTokens", mock.Anything, "old-refresh").Return(testPair, nil)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"old-refresh"}`)

	require.NoError(t, f.routers.Refresh(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuest_ReturnsGuestToken(t *testing.T) {
	f := newFixture()
	guestToken := uuid.New()
	f.auth.On("Guest", mock.Anything, "Europe/Berlin").Return(testPair, guestToken, nil)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/guest",
		`{"timezone":"Europe/Berlin"}`)

	require.NoError(t, f.routers.Guest(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, guestToken.String(), data["guest_token"])
}

func TestAuthRequired_MissingHeader(t *testing.T) {
	f := newFixture()

	c, rec := f.request(http.MethodGet, "/api/v1/auth/me", "")

	handler := f.routers.AuthRequired(func(echo.Context) error {
		t.Fatal("handler must not run without credentials")
		return nil
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired_BadToken(t *testing.T) {
	f := newFixture()
	f.tokens.On("VerifyAccess", "garbage").Return(nil, tokensvc.ErrInvalidToken)

	c, rec := f.request(http.MethodGet, "/api/v1/auth/me", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer garbage")

	handler := f.routers.AuthRequired(func(echo.Context) error {
		t.Fatal("handler must not run with an invalid token")
		return nil
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "authentication_failed", body["error"])
}

func TestAuthRequired_SetsSubject(t *testing.T) {
	f := newFixture()
	userID := uuid.New()

	f.tokens.On("VerifyAccess", "good-token").Return(&jwtlib.Claims{
		TokenType: jwtlib.TokenTypeAccess,
		IsDemo:    true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
	}, nil)

	c, _ := f.request(http.MethodGet, "/api/v1/auth/me", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer good-token")

	var seen uuid.UUID
	handler := f.routers.AuthRequired(func(c echo.Context) error {
		seen, _ = httprouters.UserID(c)
		assert.True(t, httprouters.IsDemo(c))
		return nil
	})

	require.NoError(t, handler(c))
	assert.Equal(t, userID, seen)
}

func TestLogout(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	f.auth.On("Logout", mock.Anything, userID).Return(nil)

	f.tokens.On("VerifyAccess", "good-token").Return(&jwtlib.Claims{
		TokenType: jwtlib.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
	}, nil)

	c, rec := f.request(http.MethodPost, "/api/v1/auth/logout", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer good-token")

	require.NoError(t, f.routers.AuthRequired(f.routers.Logout)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	f.auth.AssertExpectations(t)
}

func TestDemoStart_Disabled(t *testing.T) {
	f := newFixture()
	f.demo.On("StartDemo", mock.Anything, "").Return(nil, democtl.ErrDemoDisabled)

	c, rec := f.request(http.MethodPost, "/api/v1/demo/start", `{}`)

	require.NoError(t, f.routers.DemoStart(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDemoStart_Success(t *testing.T) {
	f := newFixture()
	session := &democtl.DemoSession{
		AccessToken:   "demo-access",
		ExpiresIn:     1800,
		DemoExpiresAt: time.Now().UTC().Add(30 * time.Minute),
	}
	f.demo.On("StartDemo", mock.Anything, "UTC").Return(session, nil)

	c, rec := f.request(http.MethodPost, "/api/v1/demo/start", `{"timezone":"UTC"}`)

	require.NoError(t, f.routers.DemoStart(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "demo-access", data["access_token"])
}

func TestDemoConvert_NotDemoUser(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	f.demo.On("Convert", mock.Anything, userID, "x@example.com", "password123", "X").
		Return(nil, democtl.ErrNotDemoUser)

	c, rec := f.request(http.MethodPost, "/api/v1/demo/convert",
		`{"email":"x@example.com","password":"password123","name":"X"}`)
	c.Set("user_id", userID)

	require.NoError(t, f.routers.DemoConvert(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
