package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"quiz-pilot/internal/config"
	"quiz-pilot/internal/dto"
	"quiz-pilot/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const tokenTypeAccess = "access"

var (
	ErrInvalidJWTToken = errors.New("invalid jwt token")
	ErrMissingSecret   = errors.New("jwt secret is not configured")
)

// AuthService issues and checks the operator tokens guarding the inspection
// endpoints, and verifies the student secret sent with run requests.
type AuthService interface {
	CreateJWT(ctx context.Context, subject string, ttl time.Duration) (string, error)
	ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
	VerifyStudentSecret(secret string) bool
}

type authServiceImpl struct {
	jwtSecret     []byte
	defaultTTL    time.Duration
	studentSecret string
}

func NewAuthService(appConfig *config.Config) (AuthService, error) {
	if appConfig.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	ttl := appConfig.Auth.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authServiceImpl{
		jwtSecret:     []byte(appConfig.Auth.JWTSecret),
		defaultTTL:    ttl,
		studentSecret: appConfig.Student.Secret,
	}, nil
}

func (s *authServiceImpl) CreateJWT(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()
	claims := dto.AuthClaims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Subject:   subject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authServiceImpl) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &dto.AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		snippet := tokenString[:min(len(tokenString), 20)] + "..."
		if errors.Is(err, jwt.ErrTokenExpired) {
			logger.Get().Warn("JWT token expired", zap.Error(err), zap.String("token_snippet", snippet))
		} else {
			logger.Get().Warn("JWT validation failed", zap.Error(err), zap.String("token_snippet", snippet))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	claims, ok := token.Claims.(*dto.AuthClaims)
	if !ok || !token.Valid || claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidJWTToken
	}
	return claims, nil
}

// VerifyStudentSecret compares in constant time. An unset secret accepts
// nothing.
func (s *authServiceImpl) VerifyStudentSecret(secret string) bool {
	if s.studentSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(s.studentSecret)) == 1
}
