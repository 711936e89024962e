package session

import "errors"

var (
	// ErrNoSession means nobody is signed in; reconciliation passes treat
	// it as nothing to do.
	ErrNoSession    = errors.New("no user session")
	ErrInvalidToken = errors.New("invalid access token")
)
