package model

import "errors"

var (
	// ErrValidation marks caller input outside the allowed domain.
	ErrValidation = errors.New("validation failed")
	// ErrDataAccess marks an unreachable store or a missing entity.
	ErrDataAccess = errors.New("data access failed")
	// ErrStudentNotFound is returned when a student ID is unknown.
	ErrStudentNotFound = dataAccessError("student not found")
	// ErrRender marks a chart that could not be rendered.
	ErrRender = errors.New("render failed")
	// ErrPersistence marks a failed write; the write has been rolled back.
	ErrPersistence = errors.New("persistence failed")
	// ErrEmptyPopulation is returned for a percentile over no scores.
	ErrEmptyPopulation = errors.New("empty population")
	// ErrDocument marks a failure to assemble the final document.
	ErrDocument = errors.New("document assembly failed")
	// ErrNoData is returned when an analysis has nothing to work with.
	ErrNoData = errors.New("no data")
)

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string { return e.msg }

func (e *wrappedError) Unwrap() error { return e.parent }

func dataAccessError(msg string) error {
	return &wrappedError{msg: msg, parent: ErrDataAccess}
}
