package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"paper-atlas/models"
	"paper-atlas/storage"
)

const minPasswordLength = 8

// AuthService registers users, issues bearer tokens and manages the stored LLM credential.
type AuthService struct {
	Users    storage.UserStore
	Sealer   *Sealer
	Secret   []byte
	TokenTTL time.Duration
	Logger   *zap.Logger

	now func() time.Time
}

// NewAuthService creates an AuthService signing HS256 tokens with secret.
func NewAuthService(users storage.UserStore, sealer *Sealer, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{Users: users, Sealer: sealer, Secret: []byte(secret), TokenTTL: ttl, Logger: logger, now: time.Now}
}

// ValidationError is a client error with a message safe to return as-is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Register creates a user and returns it together with a fresh token.
func (a *AuthService) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", &ValidationError{Msg: "invalid email address"}
	}
	if len(password) < minPasswordLength {
		return nil, "", &ValidationError{Msg: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := a.Users.CreateUser(ctx, &models.User{Email: email, PasswordHash: string(hash), Active: true})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil, "", ErrEmailTaken
	}
	if err != nil {
		return nil, "", err
	}

	token, err := a.issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	a.Logger.Info("User registered", zap.Uint("userId", user.ID))
	return user, token, nil
}

// Login checks the password and returns a fresh token.
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := a.Users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrInvalidLogin
	}
	if err != nil {
		return nil, "", err
	}
	if !user.Active {
		return nil, "", ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidLogin
	}
	token, err := a.issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (a *AuthService) issue(userID uint) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}

// Authenticate validates a bearer token and returns the active user it belongs to.
func (a *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := a.Users.GetUserByID(ctx, uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// SetAPIKey seals and stores the user's LLM key. An empty baseURL means the server default.
func (a *AuthService) SetAPIKey(ctx context.Context, userID uint, apiKey, baseURL string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &ValidationError{Msg: "apiKey is required"}
	}
	sealed, err := a.Sealer.Seal(apiKey)
	if err != nil {
		return fmt.Errorf("seal api key: %w", err)
	}
	return a.Users.UpdateUserCredential(ctx, userID, sealed, strings.TrimSpace(baseURL))
}

// ClearAPIKey removes the stored LLM key.
func (a *AuthService) ClearAPIKey(ctx context.Context, userID uint) error {
	return a.Users.UpdateUserCredential(ctx, userID, "", "")
}
