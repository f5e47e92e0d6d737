package dto

import "github.com/golang-jwt/jwt/v5"

// AuthClaims defines the custom claims for operator JWTs.
type AuthClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenResponse is returned by the token command.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
