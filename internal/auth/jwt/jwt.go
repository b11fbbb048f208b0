package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrInvalidAlgorithm = errors.New("invalid signing algorithm")
	ErrEmptySecretKey   = errors.New("secret key cannot be empty")
	ErrWeakSecretKey    = errors.New("secret key must be at least 32 characters")
	ErrInvalidDuration  = errors.New("duration must be positive")
)

// Token types carried in the token_type claim. Refresh tokens are only
// accepted by the refresh exchange, access tokens everywhere else.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Config represents the JWT configuration
type Config struct {
	SecretKey       string        `yaml:"secret_key"`
	AccessDuration  time.Duration `yaml:"access_duration"`
	RefreshDuration time.Duration `yaml:"refresh_duration"`
}

// Service issues and validates access/refresh token pairs
type Service struct {
	config Config
}

// NewService creates a new JWT service
func NewService(config Config) (*Service, error) {
	if config.SecretKey == "" {
		return nil, ErrEmptySecretKey
	}
	if len(config.SecretKey) < 32 {
		return nil, ErrWeakSecretKey
	}
	if config.AccessDuration <= 0 || config.RefreshDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Service{
		config: config,
	}, nil
}

// GeneratePair generates a new access/refresh token pair for the user
func (s *Service) GeneratePair(userID int64, username string) (access, refresh string, err error) {
	access, err = s.generate(userID, username, TypeAccess, s.config.AccessDuration)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.generate(userID, username, TypeRefresh, s.config.RefreshDuration)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// GenerateAccess generates a fresh access token, used by the refresh exchange
func (s *Service) GenerateAccess(userID int64, username string) (string, error) {
	return s.generate(userID, username, TypeAccess, s.config.AccessDuration)
}

func (s *Service) generate(userID int64, username, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}

// ValidateToken validates a JWT token and checks its type
func (s *Service) ValidateToken(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAlgorithm
		}
		return []byte(s.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
