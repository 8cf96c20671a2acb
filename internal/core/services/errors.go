package services

import "errors"

var (
	ErrInvalidActivityKind  = errors.New("invalid activity kind")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrUnknownUser          = errors.New("unknown user")
	ErrOutdatedVersion      = errors.New("outdated game version")
	ErrIntegrityCompromised = errors.New("integrity check failed")
	ErrCheckTooFrequent     = errors.New("integrity checks too frequent")
	ErrPayloadTooLarge      = errors.New("payload too large")
)
