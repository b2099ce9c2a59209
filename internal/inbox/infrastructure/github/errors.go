package github

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrRemoteUnavailable covers transport failures and unexpected statuses on pull.
	// Pollers log it and try again on the next tick.
	ErrRemoteUnavailable = errors.New("remote inbox unavailable")

	// ErrDecode is returned when the remote file is not a valid inbox envelope.
	// It also matches ErrRemoteUnavailable.
	ErrDecode = errors.New("remote inbox could not be decoded")

	// ErrVersionConflict is returned when a push names a stale revision.
	ErrVersionConflict = errors.New("remote inbox version conflict")

	// ErrPushFailed is returned for any other push failure.
	ErrPushFailed = errors.New("push to remote inbox failed")
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github api error: status=%d body=%s", e.StatusCode, e.Body)
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// ConflictError is returned when another writer updated the file since SHA was read.
type ConflictError struct {
	Resource string
	SHA      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: revision %q is stale", e.Resource, e.SHA)
}

// Is matches ErrVersionConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// PushError wraps a push failure that is not a conflict.
type PushError struct {
	Resource string
	Err      error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push %s: %v", e.Resource, e.Err)
}

// Is matches ErrPushFailed.
func (e *PushError) Is(target error) bool {
	return target == ErrPushFailed
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// DecodeError wraps a malformed pull response.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Resource, e.Err)
}

// Is matches ErrDecode and ErrRemoteUnavailable.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode || target == ErrRemoteUnavailable
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func unavailable(key string, err error) error {
	return fmt.Errorf("%w: pull %s: %w", ErrRemoteUnavailable, key, err)
}
