package main

import (
	"errors"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitNotFound   = 3
	exitRejected   = 4
	exitStorage    = 5
	exitAborted    = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	switch lifecycle.KindOf(err) {
	case lifecycle.KindValidation:
		return exitValidation
	case lifecycle.KindNotFound:
		return exitNotFound
	case lifecycle.KindPolicyViolation:
		return exitRejected
	case lifecycle.KindStorage:
		return exitStorage
	}
	return exitFailure
}
