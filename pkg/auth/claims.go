package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Email     string
	Role      enums.ActorRole
	CompanyID *uuid.UUID
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. CompanyID
// scopes the caller to a buying company; admins carry none.
type AccessTokenClaims struct {
	UserID    uuid.UUID       `json:"user_id"`
	Email     string          `json:"email,omitempty"`
	Role      enums.ActorRole `json:"role"`
	CompanyID *uuid.UUID      `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}
