package auth

import (
	"errors"
	"fmt"

	"github.com/okian/commitquest/pkg/errs"
)

var (
	ErrEmptySecret      = errors.New("jwt secret must not be empty")
	ErrMissingToken     = fmt.Errorf("missing session token: %w", errs.ErrUnauthorized)
	ErrInvalidToken     = fmt.Errorf("invalid session token: %w", errs.ErrUnauthorized)
	ErrExpiredToken     = fmt.Errorf("session token expired: %w", errs.ErrUnauthorized)
	ErrInsufficientRole = fmt.Errorf("insufficient role: %w", errs.ErrForbidden)
)
