package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/Presence/internal/domain"
)

// Sign mints a token the verifier with the same config accepts. Used by
// tooling and tests; production tokens come from the account service.
func Sign(cfg Config, id domain.Identity, ttl time.Duration) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", ErrSecretRequired
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	issued := now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id.UserID),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
		Email: id.Email,
		Role:  string(id.Role),
	}
	if cfg.Audience != "" {
		c.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
