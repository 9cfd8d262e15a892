package core

import (
	"errors"
)

var (
	ErrUnknownHandle     = errors.New("unknown handle")
	ErrDuplicateHandle   = errors.New("handle already in use")
	ErrInvalidSettings   = errors.New("invalid settings")
	ErrInvalidScenario   = errors.New("invalid replay scenario")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrValidationFailed  = errors.New("validation failed")
	ErrIdentifierRelease = errors.New("identifier was never acquired")
	ErrUnknown           = errors.New("unknown")
)
