package toolchain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Installer.Install matches exactly
// one of these with errors.Is.
var (
	ErrWrongPlatform    = errors.New("unsupported host platform")
	ErrInvalidRequest   = errors.New("invalid install request")
	ErrKeyProvisioning  = errors.New("key provisioning failed")
	ErrDownload         = errors.New("download failed")
	ErrVerification     = errors.New("signature verification failed")
	ErrExtraction       = errors.New("extraction failed")
	ErrCache            = errors.New("cache operation failed")
	ErrPathRegistration = errors.New("path registration failed")
)

// State is a step of the install state machine.
type State int

const (
	StateCheckingCache State = iota
	StateCached
	StateProvisioning
	StateFetching
	StateVerifying
	StateExtracting
	StatePathExposed
	StateFailed
)

// String returns the state name used in logs and errors.
func (s State) String() string {
	switch s {
	case StateCheckingCache:
		return "checking-cache"
	case StateCached:
		return "cached"
	case StateProvisioning:
		return "provisioning"
	case StateFetching:
		return "fetching"
	case StateVerifying:
		return "verifying"
	case StateExtracting:
		return "extracting"
	case StatePathExposed:
		return "path-exposed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StageError reports the state an install failed in.
type StageError struct {
	State State
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.State, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.State, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stageError(state State, kind, err error) *StageError {
	return &StageError{State: state, Kind: kind, Err: err}
}
