package service

import (
	"context"
	"errors"
	"fmt"

	"okrdrift/internal/model"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnreachable = errors.New("analysis service unreachable")
	ErrMalformed   = errors.New("malformed response")
	ErrTimeout     = errors.New("analysis service timed out")
)

// RequestError is returned by orchestrator calls that surface failures to the caller
type RequestError struct {
	Kind model.ErrorKind
	Op   string
	Err  error
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind
func (e *RequestError) Is(target error) bool {
	return target == sentinel(e.Kind)
}

func sentinel(kind model.ErrorKind) error {
	switch kind {
	case model.ErrorNotFound:
		return ErrNotFound
	case model.ErrorUnreachable:
		return ErrUnreachable
	case model.ErrorMalformed:
		return ErrMalformed
	case model.ErrorTimeout:
		return ErrTimeout
	}
	return nil
}

func requestError(op string, kind model.ErrorKind, err error) *RequestError {
	return &RequestError{Kind: kind, Op: op, Err: err}
}

// KindOf classifies err. Unknown errors are Unreachable.
func KindOf(err error) model.ErrorKind {
	var re *RequestError
	switch {
	case errors.As(err, &re):
		return re.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return model.ErrorTimeout
	}
	return model.ErrorUnreachable
}
