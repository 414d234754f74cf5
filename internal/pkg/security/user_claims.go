package security

import (
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "ADMIN"

// UserClaims identity carried by the bearer tokens of the account service
type UserClaims struct {
	UserID uint64   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

func (c *UserClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
