package core

import "errors"

var (
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyLoggedIn = errors.New("already logged in")
	ErrInvalidUsername = errors.New("username is required")
	ErrUnknownBuddy    = errors.New("unknown buddy")
	ErrUnknownStatus   = errors.New("unknown status")
)
