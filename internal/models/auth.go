package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the verified identity handed over by the identity provider.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}
