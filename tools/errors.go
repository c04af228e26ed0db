package tools

import "github.com/cockroachdb/errors"

var (
	// ErrToolNotFound is returned when the tool is not registered.
	ErrToolNotFound = errors.New("tool not found")
	// ErrAlreadyRegistered is returned when a tool with the same name is registered.
	ErrAlreadyRegistered = errors.New("tool already registered")
	// ErrInvalidDescriptor is returned when a descriptor is incomplete.
	ErrInvalidDescriptor = errors.New("invalid tool descriptor")
	// ErrToolExecution is the kind of errors returned by a tool call.
	ErrToolExecution = errors.New("tool execution failed")
)
