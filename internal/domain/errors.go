package domain

import "errors"

// ErrUsernameTaken is returned by CredentialStore.Insert when the username is
// already registered.
var ErrUsernameTaken = errors.New("username is taken")

// ErrSessionGone is returned by a Notifier when the target session was
// removed or its connection closed before delivery.
var ErrSessionGone = errors.New("session gone")
