package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"authgate/internal/auth"
	"authgate/internal/cache"
	"authgate/internal/model"
	"authgate/internal/repository"
)

const bcryptCost = 10

const (
	profileCachePrefix  = "profile:"
	profileCacheTTL     = 5 * time.Minute
	mysqlDuplicateEntry = 1062
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	// Unknown email and wrong password both collapse into this one error so
	// callers cannot distinguish the two cases.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// AuthService handles registration, credential verification and session
// issuance.
type AuthService interface {
	Register(ctx context.Context, firstName, lastName, email, password string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (token string, session auth.Session, err error)
	Profile(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type authService struct {
	userRepo     repository.UserRepository
	tokenService *auth.TokenService
	cache        *cache.Client
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, tokenService *auth.TokenService, cacheClient *cache.Client) AuthService {
	return &authService{
		userRepo:     userRepo,
		tokenService: tokenService,
		cache:        cacheClient,
	}
}

// Register creates a new user with a bcrypt-hashed password. The plaintext is
// discarded after hashing and never logged. A duplicate email fails either at
// the pre-check or, when two registrations race, at the store's unique index.
func (s *authService) Register(ctx context.Context, firstName, lastName, email, password string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// SignIn verifies the credentials and mints a session token. The lookup and
// the hash comparison fail with the same ErrInvalidCredentials; bcrypt's
// comparison is constant-time.
func (s *authService) SignIn(ctx context.Context, email, password string) (string, auth.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", auth.Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", auth.Session{}, ErrInvalidCredentials
	}

	token, err := s.tokenService.IssueSession(user.ID.String(), user.Email, user.FullName())
	if err != nil {
		return "", auth.Session{}, fmt.Errorf("issue session token: %w", err)
	}

	session := auth.Session{
		User: auth.SessionUser{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.FullName(),
		},
	}

	return token, session, nil
}

// Profile loads a user record by id, fronted by the fail-safe cache.
func (s *authService) Profile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	key := profileCachePrefix + id.String()
	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, key, payload, profileCacheTTL)
	}

	return user, nil
}

// isDuplicateEntry reports whether err is a MySQL unique-constraint violation.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
