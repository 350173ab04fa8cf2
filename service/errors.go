package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrEmailTaken         = errors.New("An account with this email already exists")
	ErrNoteQuotaExceeded  = errors.New("note quota exceeded")
	ErrTokenNotProvided   = errors.New("token not provided")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInvalidShareLink   = errors.New("share link is invalid or has expired")
)
