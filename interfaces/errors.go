package interfaces

import (
	"errors"
	"fmt"
)

// ErrInvalidClientID indicates the client id failed validation. Wrap with
// the offending id: fmt.Errorf("%w: %q", ErrInvalidClientID, id).
var ErrInvalidClientID = errors.New("invalid client name")

// ErrClientNotFound indicates no record exists for the requested client id.
var ErrClientNotFound = errors.New("client not found")

// MissingArtifactError indicates a required deployment artifact (the backend
// binary or the shared frontend bundle) is absent from the host.
type MissingArtifactError struct {
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("required artifact not found at %s", e.Path)
}

// NoFreePortError indicates the allocator exhausted its port range without
// finding a bindable port.
type NoFreePortError struct {
	Start int
	End   int
}

func (e *NoFreePortError) Error() string {
	return fmt.Sprintf("no free ports in range %d-%d", e.Start, e.End)
}

// SupervisorError indicates a supervision step failed: writing the unit
// file, reloading the catalog, or starting the service.
type SupervisorError struct {
	Op  string
	Err error
}

func (e *SupervisorError) Error() string {
	return fmt.Sprintf("supervisor %s: %v", e.Op, e.Err)
}

func (e *SupervisorError) Unwrap() error { return e.Err }

// ProxyError indicates a proxy step failed: writing the rule, activating it,
// validating the aggregate configuration, or reloading.
type ProxyError struct {
	Op  string
	Err error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy %s: %v", e.Op, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }
