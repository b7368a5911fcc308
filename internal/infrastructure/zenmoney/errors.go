package zenmoney

import (
	"fmt"

	"finmirror/internal/domain/syncer"
)

// AuthError is returned when the remote rejects the bearer token.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("zenmoney: invalid token (status %d)", e.Status)
}

func (e *AuthError) Is(target error) bool {
	return target == syncer.ErrRemoteAuth
}

// ClientError covers every other failed diff call.
type ClientError struct {
	Status  int
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	msg := "zenmoney: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error { return e.Err }

func (e *ClientError) Is(target error) bool {
	return target == syncer.ErrRemoteClient
}
