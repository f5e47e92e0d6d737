package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-pilot/internal/dto"
	"quiz-pilot/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ManualMockAuthService stubs service.AuthService for middleware tests.
type ManualMockAuthService struct {
	ValidateJWTFunc func(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
}

func (m *ManualMockAuthService) CreateJWT(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	panic("not implemented in mock")
}

func (m *ManualMockAuthService) ValidateJWT(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
	if m.ValidateJWTFunc != nil {
		return m.ValidateJWTFunc(ctx, tokenString)
	}
	return nil, errors.New("ValidateJWTFunc not set on mock")
}

func (m *ManualMockAuthService) VerifyStudentSecret(secret string) bool {
	panic("not implemented in mock")
}

func TestProtected(t *testing.T) {
	validClaims := func(tokenType string) func(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
		return func(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
			return &dto.AuthClaims{
				TokenType: tokenType,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   "operator",
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				},
			}, nil
		}
	}

	tests := []struct {
		name            string
		authHeader      string
		validate        func(ctx context.Context, tokenString string) (*dto.AuthClaims, error)
		expectedStatus  int
		expectedCode    string
		expectedSubject interface{}
	}{
		{
			name:            "valid access token",
			authHeader:      "Bearer good",
			validate:        validClaims("access"),
			expectedStatus:  fiber.StatusOK,
			expectedSubject: "operator",
		},
		{
			name:           "missing header",
			expectedStatus: fiber.StatusUnauthorized,
			expectedCode:   "MISSING_AUTH_HEADER",
		},
		{
			name:           "basic scheme",
			authHeader:     "Basic abc",
			expectedStatus: fiber.StatusUnauthorized,
			expectedCode:   "INVALID_AUTH_SCHEME",
		},
		{
			name:           "empty token",
			authHeader:     "Bearer  ",
			expectedStatus: fiber.StatusUnauthorized,
			expectedCode:   "EMPTY_TOKEN",
		},
		{
			name:       "validation error",
			authHeader: "Bearer bad",
			validate: func(ctx context.Context, tokenString string) (*dto.AuthClaims, error) {
				return nil, errors.New("token is expired")
			},
			expectedStatus: fiber.StatusUnauthorized,
			expectedCode:   "INVALID_TOKEN",
		},
		{
			name:           "refresh token",
			authHeader:     "Bearer refresh",
			validate:       validClaims("refresh"),
			expectedStatus: fiber.StatusForbidden,
			expectedCode:   "INVALID_TOKEN_TYPE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			authSvc := &ManualMockAuthService{ValidateJWTFunc: tc.validate}

			var subject interface{}
			app.Get("/protected", middleware.Protected(authSvc), func(c *fiber.Ctx) error {
				subject = c.Locals(middleware.SubjectKey)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest("GET", "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
			assert.Equal(t, tc.expectedSubject, subject)

			if tc.expectedCode != "" {
				var body middleware.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tc.expectedCode, body.Code)
			}
		})
	}
}
