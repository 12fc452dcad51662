package models

import "errors"

var (
	// ErrInvalidState is returned when an operation runs before its
	// prerequisites, e.g. predicting with an estimator that was never fitted.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument is returned for out-of-range inputs such as k = 0.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingArtifact is returned when a model bundle is partial or its
	// parts do not come from the same fit.
	ErrMissingArtifact = errors.New("missing artifact")
)
