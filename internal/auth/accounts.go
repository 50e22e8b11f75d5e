package auth

import (
	"context"

	"github.com/dkeye/Presence/internal/domain"
)

//go:generate mockgen -destination=accounts_mock.go -package=auth . AccountDirectory

// AccountDirectory reports whether a verified subject may still connect.
type AccountDirectory interface {
	IsActive(ctx context.Context, id domain.UserID) (bool, error)
}

// AllowAll accepts every subject with a valid token.
type AllowAll struct{}

func (AllowAll) IsActive(context.Context, domain.UserID) (bool, error) { return true, nil }
