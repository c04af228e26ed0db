package chatmodel

import "github.com/cockroachdb/errors"

var (
	// ErrFailedUnmarshalInput is returned when the arguments provided by the model
	// do not match the tool parameters.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)
