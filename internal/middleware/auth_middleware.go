package middleware

import (
	"strings"

	"quiz-pilot/internal/logger"
	"quiz-pilot/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	AuthorizationHeader = "Authorization"
	BearerSchema        = "Bearer "
	SubjectKey          = "subject"
)

func reject(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Code: code, Message: message, Status: status})
}

// bearerToken pulls the token out of the Authorization header. On failure it
// returns the error code to report.
func bearerToken(header string) (string, string) {
	switch {
	case header == "":
		return "", "MISSING_AUTH_HEADER"
	case !strings.HasPrefix(header, BearerSchema):
		return "", "INVALID_AUTH_SCHEME"
	}
	token := strings.TrimSpace(header[len(BearerSchema):])
	if token == "" {
		return "", "EMPTY_TOKEN"
	}
	return token, ""
}

var bearerMessages = map[string]string{
	"MISSING_AUTH_HEADER": "Authorization header is missing",
	"INVALID_AUTH_SCHEME": "Authorization scheme is not Bearer",
	"EMPTY_TOKEN":         "Token is empty",
}

// Protected admits requests carrying a valid operator access token. The
// token subject is stored under SubjectKey.
func Protected(authService service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, code := bearerToken(c.Get(AuthorizationHeader))
		if code != "" {
			return reject(c, fiber.StatusUnauthorized, code, bearerMessages[code])
		}

		claims, err := authService.ValidateJWT(c.UserContext(), token)
		if err != nil {
			logger.Get().Debug("Rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return reject(c, fiber.StatusUnauthorized, "INVALID_TOKEN", err.Error())
		}
		if claims.TokenType != "access" {
			return reject(c, fiber.StatusForbidden, "INVALID_TOKEN_TYPE",
				"Invalid token type: expected access, got "+claims.TokenType)
		}

		c.Locals(SubjectKey, claims.Subject)
		return c.Next()
	}
}
