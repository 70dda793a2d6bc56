package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrLaunch is returned when a service process could not be launched.
	ErrLaunch = errors.New("could not launch")
	// ErrHealthTimeout is returned when a service did not become healthy within
	// the readiness budget.
	ErrHealthTimeout = errors.New("health timeout")
	// ErrEmptyResponse is returned when the pipeline API replies with success
	// and an empty body.
	ErrEmptyResponse = errors.New("empty response")
	// ErrMissingField is returned when the pipeline API replies with a payload
	// that lacks a required field.
	ErrMissingField = errors.New("missing field")
	// ErrPollTimeout is returned when a task does not reach a terminal status
	// within the polling budget.
	ErrPollTimeout = errors.New("poll timeout")
)
