package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"authgate/internal/auth"
	"authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/service"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, firstName, lastName, email, password string) (*model.User, error) {
	args := m.Called(ctx, firstName, lastName, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (string, auth.Session, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(auth.Session), args.Error(2)
}

func (m *MockAuthService) Profile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		setupMock    func(*MockAuthService)
		expectedCode int
		checkBody    func(*testing.T, errors.RegistrationResponse)
	}{
		{
			name: "successful registration",
			body: `{"firstName":"Max","lastName":"Robinson","email":"max@example.com","password":"secret123"}`,
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "Max", "Robinson", "max@example.com", "secret123").
					Return(&model.User{ID: uuid.New(), Email: "max@example.com"}, nil)
			},
			expectedCode: http.StatusCreated,
			checkBody: func(t *testing.T, resp errors.RegistrationResponse) {
				assert.True(t, resp.Success)
				assert.Equal(t, "User created successfully", resp.Message)
			},
		},
		{
			name: "store rejects duplicate email",
			body: `{"firstName":"Max","lastName":"Robinson","email":"max@example.com","password":"secret123"}`,
			setupMock: func(m *MockAuthService) {
				m.On("Register", mock.Anything, "Max", "Robinson", "max@example.com", "secret123").
					Return(nil, service.ErrUserAlreadyExists)
			},
			expectedCode: http.StatusInternalServerError,
			checkBody: func(t *testing.T, resp errors.RegistrationResponse) {
				assert.False(t, resp.Success)
				assert.Equal(t, "Registration failed", resp.Error)
				assert.NotEmpty(t, resp.Details)
			},
		},
		{
			name:         "malformed body",
			body:         `{"firstName":`,
			setupMock:    func(m *MockAuthService) {},
			expectedCode: http.StatusBadRequest,
			checkBody: func(t *testing.T, resp errors.RegistrationResponse) {
				assert.False(t, resp.Success)
				assert.Equal(t, "Registration failed", resp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.setupMock(mockService)

			e := newTestEcho()
			e.POST("/api/register", NewAuthHandler(mockService).Register)

			rec := doJSON(e, http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, tt.expectedCode, rec.Code)

			var resp errors.RegistrationResponse
			assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			tt.checkBody(t, resp)

			mockService.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_SignIn_InvalidCredentials(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("SignIn", mock.Anything, "max@example.com", "wrong").
		Return("", auth.Session{}, service.ErrInvalidCredentials)

	e := newTestEcho()
	e.POST("/api/auth/signin", NewAuthHandler(mockService).SignIn)

	rec := doJSON(e, http.MethodPost, "/api/auth/signin", `{"email":"max@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp errors.ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CREDENTIALS_SIGNIN", resp.Code)
}

// fakeUserRepo is an in-memory repository enforcing email uniqueness the way
// the real store's unique index does.
type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	copied := *user
	r.byEmail[user.Email] = &copied
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// End-to-end flow against the real service: register, sign in with the right
// and wrong password, re-register the same email.
func TestAuthFlow(t *testing.T) {
	repo := newFakeUserRepo()
	tokenService := auth.NewTokenService("test-secret")
	authService := service.NewAuthService(repo, tokenService, nil)
	h := NewAuthHandler(authService)

	e := newTestEcho()
	e.POST("/api/register", h.Register)
	e.POST("/api/auth/signin", h.SignIn)

	// Register Max.
	rec := doJSON(e, http.MethodPost, "/api/register",
		`{"firstName":"Max","lastName":"Robinson","email":"max@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var regResp errors.RegistrationResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regResp))
	assert.True(t, regResp.Success)

	// Same email again: generic failure envelope.
	rec = doJSON(e, http.MethodPost, "/api/register",
		`{"firstName":"Max","lastName":"Robinson","email":"max@example.com","password":"other456"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regResp))
	assert.False(t, regResp.Success)

	// Correct credentials yield a session carrying the registered identity.
	rec = doJSON(e, http.MethodPost, "/api/auth/signin",
		`{"email":"max@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var signInResp SignInResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signInResp))
	assert.NotEmpty(t, signInResp.Token)
	assert.Equal(t, "max@example.com", signInResp.Session.User.Email)
	assert.Equal(t, "Max Robinson", signInResp.Session.User.Name)
	assert.NotEmpty(t, signInResp.Session.User.ID)

	claims, err := tokenService.ParseSession(signInResp.Token)
	assert.NoError(t, err)
	assert.Equal(t, signInResp.Session.User.ID, claims.UserID)

	// Wrong password: generic failure, no token issued.
	rec = doJSON(e, http.MethodPost, "/api/auth/signin",
		`{"email":"max@example.com","password":"wrong1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var errResp errors.ErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "CREDENTIALS_SIGNIN", errResp.Code)

	// Unknown email produces the exact same response body.
	rec2 := doJSON(e, http.MethodPost, "/api/auth/signin",
		`{"email":"nobody@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.JSONEq(t, rec.Body.String(), rec2.Body.String())
}

func TestAuthHandler_Session(t *testing.T) {
	mockService := new(MockAuthService)
	h := NewAuthHandler(mockService)

	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// The JWT middleware's ParseTokenFunc stores the parsed claims directly.
	tokenService := auth.NewTokenService("test-secret")
	token, _ := tokenService.IssueSession("user-123", "max@example.com", "Max Robinson")
	claims, err := tokenService.ParseSession(token)
	assert.NoError(t, err)
	c.Set("user", claims)

	assert.NoError(t, h.Session(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var session auth.Session
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "user-123", session.User.ID)
	assert.Equal(t, "max@example.com", session.User.Email)
	assert.Equal(t, "Max Robinson", session.User.Name)
}

func TestAuthHandler_Me(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name         string
		setupMock    func(*MockAuthService)
		expectedCode int
		expectedErr  string
	}{
		{
			name: "successful lookup",
			setupMock: func(m *MockAuthService) {
				m.On("Profile", mock.Anything, userID).Return(&model.User{
					ID:        userID,
					FirstName: "Max",
					LastName:  "Robinson",
					Email:     "max@example.com",
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "record gone from the store",
			setupMock: func(m *MockAuthService) {
				m.On("Profile", mock.Anything, userID).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedErr:  "NOT_FOUND",
		},
		{
			name: "store outage",
			setupMock: func(m *MockAuthService) {
				m.On("Profile", mock.Anything, userID).Return(nil, context.DeadlineExceeded)
			},
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "DATABASE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockAuthService)
			tt.setupMock(mockService)
			h := NewAuthHandler(mockService)

			e := newTestEcho()
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.Set("user", &auth.SessionClaims{
				UserID: userID.String(),
				Email:  "max@example.com",
				Name:   "Max Robinson",
			})

			assert.NoError(t, h.Me(c))
			assert.Equal(t, tt.expectedCode, rec.Code)

			if tt.expectedErr != "" {
				var resp errors.ErrorResponse
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedErr, resp.Code)
			} else {
				var user model.User
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
				assert.Equal(t, "max@example.com", user.Email)
			}

			mockService.AssertExpectations(t)
		})
	}
}
