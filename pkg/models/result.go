package models

import (
	"encoding/json"

	"task-sync-backend/pkg/apperrors"
)

// ResultState enumerates the three outcomes a subscription can report.
type ResultState string

const (
	ResultLoading ResultState = "loading"
	ResultSuccess ResultState = "success"
	ResultError   ResultState = "error"
)

// Result is the tri-state outcome wrapper delivered on every subscription
// stream. It is never persisted; a fresh Result is emitted for every
// underlying change.
type Result[T any] struct {
	State ResultState
	Value T
	Err   error
}

// Loading returns the initial pre-data Result.
func Loading[T any]() Result[T] {
	return Result[T]{State: ResultLoading}
}

// Success wraps a snapshot value.
func Success[T any](value T) Result[T] {
	return Result[T]{State: ResultSuccess, Value: value}
}

// Failure wraps an error cause.
func Failure[T any](err error) Result[T] {
	return Result[T]{State: ResultError, Err: err}
}

// IsLoading reports the loading state.
func (r Result[T]) IsLoading() bool { return r.State == ResultLoading }

// IsSuccess reports the success state.
func (r Result[T]) IsSuccess() bool { return r.State == ResultSuccess }

// IsError reports the error state.
func (r Result[T]) IsError() bool { return r.State == ResultError }

// resultWire is the JSON shape a Result takes on the stream.
type resultWire[T any] struct {
	State ResultState `json:"state"`
	Data  *T          `json:"data,omitempty"`
	Error *wireError  `json:"error,omitempty"`
}

type wireError struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// MarshalJSON renders the Result for wire delivery: state plus either the
// snapshot data or a structured error.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	w := resultWire[T]{State: r.State}
	switch r.State {
	case ResultSuccess:
		v := r.Value
		w.Data = &v
	case ResultError:
		w.Error = &wireError{Kind: apperrors.KindOf(r.Err), Message: apperrors.MessageOf(r.Err)}
	}
	return json.Marshal(w)
}
