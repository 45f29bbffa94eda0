package process

import "errors"

var (
	// ErrNoBinary is returned when Config.Binary is empty.
	ErrNoBinary = errors.New("process: binary is required")

	// ErrExitStatus is returned when the command exits with a non-zero code.
	ErrExitStatus = errors.New("process: non-zero exit status")

	// ErrTimeout is returned when Config.Timeout elapses before the command exits.
	ErrTimeout = errors.New("process: timed out")
)
