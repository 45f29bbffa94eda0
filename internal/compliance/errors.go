package compliance

import "errors"

// ErrInvalidPolicy is returned when a firmware rule cannot be compiled.
var ErrInvalidPolicy = errors.New("compliance: invalid policy")
