package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the authenticated actor attached to every request. AcademiaID
// is the tenant partition key: core operations always take it from here,
// never from client input.
type JWTClaims struct {
	UserID     string     `json:"sub"`
	AcademiaID string     `json:"academiaId"`
	Roles      []UserRole `json:"roles"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the actor holds any staff role.
func (c *JWTClaims) IsStaff() bool {
	if c == nil {
		return false
	}
	return IsStaff(c.Roles)
}
