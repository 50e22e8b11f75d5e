// Package auth verifies connection credentials before a session is admitted.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/domain"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// claims is the internal claims type used for JWT parsing. The subject is
// the user id; userId is accepted for tokens minted without a subject.
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Verifier checks HS256 tokens and maps them to an identity.
type Verifier struct {
	cfg      Config
	accounts AccountDirectory
	parser   *jwt.Parser
}

func NewVerifier(cfg Config, accounts AccountDirectory) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretRequired
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if accounts == nil {
		accounts = AllowAll{}
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{cfg: cfg, accounts: accounts, parser: jwt.NewParser(opts...)}, nil
}

// Verify never returns a partial identity: either the token is fully valid
// and the account is active, or an error wrapping one of the two sentinels
// comes back.
func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if f := strings.Fields(token); len(f) > 0 && strings.EqualFold(f[0], "bearer") {
		token = strings.TrimSpace(token[len(f[0]):])
	}
	if token == "" {
		return domain.Identity{}, ErrMissingCredential
	}

	var parsed claims
	_, err := v.parser.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	})
	if err != nil {
		return domain.Identity{}, mapJWTError(err)
	}

	subject := parsed.Subject
	if subject == "" {
		subject = parsed.UserID
	}
	id, err := domain.NewIdentity(subject, parsed.Email, parsed.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	active, err := v.accounts.IsActive(ctx, id.UserID)
	if err != nil {
		log.Warn().Str("module", "auth").Str("user", string(id.UserID)).Err(err).Msg("account lookup failed")
		return domain.Identity{}, fmt.Errorf("%w: account lookup failed", ErrInvalidCredential)
	}
	if !active {
		return domain.Identity{}, fmt.Errorf("%w: account inactive", ErrInvalidCredential)
	}
	return id, nil
}

// mapJWTError translates jwt library errors to verifier errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token expired", ErrInvalidCredential)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: token not active yet", ErrInvalidCredential)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidCredential)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: alg is invalid", ErrInvalidCredential)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: token is malformed", ErrInvalidCredential)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: required claim missing", ErrInvalidCredential)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: issuer or audience mismatch", ErrInvalidCredential)
	}
	return fmt.Errorf("%w: token is invalid", ErrInvalidCredential)
}

// Reason is the machine-readable cause sent back on a rejected handshake.
func Reason(err error) string {
	if errors.Is(err, ErrMissingCredential) {
		return "missing_credential"
	}
	return "invalid_credential"
}
