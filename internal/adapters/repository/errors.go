package repository

import (
	"errors"
	"fmt"

	"github.com/okian/commitquest/pkg/errs"
)

// Sentinel errors. Each carries an errs kind so callers can branch with errors.Is.
var (
	ErrUserNotFound      = fmt.Errorf("user %w", errs.ErrNotFound)
	ErrAwayNotFound      = fmt.Errorf("away period %w", errs.ErrNotFound)
	ErrAlreadyDecided    = fmt.Errorf("away period already decided: %w", errs.ErrConflict)
	ErrInvalidLimit      = fmt.Errorf("invalid limit: %w", errs.ErrValidation)
	ErrUnknownDriver     = errors.New("unknown database driver")
	ErrNothingToCredit   = fmt.Errorf("non-positive xp delta: %w", errs.ErrValidation)
	ErrDuplicateDelivery = fmt.Errorf("delivery already credited: %w", errs.ErrConflict)
)
