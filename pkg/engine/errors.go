package engine

import "errors"

var (
	errInvalidStep    = errors.New("step minutes must be positive")
	errInvalidHorizon = errors.New("horizon must be a positive multiple of the step")
)
