package manager

import (
	"errors"
	"fmt"
)

// Errors returned by Binding when a run did not complete normally.
var (
	ErrBlocked   = errors.New("content blocked by guard")
	ErrFailed    = errors.New("guard run failed")
	ErrCancelled = errors.New("guard run cancelled")
)

// Stages at which a guard can fault.
const (
	StageCheck = "check"
	StageMask  = "mask"
)

// GuardFault records a guard that returned an error or panicked. It never
// escapes Run; it is reported on the guard's outcome.
type GuardFault struct {
	GuardID string
	Stage   string
	Err     error
}

func (f *GuardFault) Error() string {
	return fmt.Sprintf("guard %s: %s: %v", f.GuardID, f.Stage, f.Err)
}

func (f *GuardFault) Unwrap() error { return f.Err }

// Kind is the short fault label written to the audit log, e.g.
// "check_error" or "mask_panic".
func (f *GuardFault) Kind() string {
	var p *PanicError
	if errors.As(f.Err, &p) {
		return f.Stage + "_panic"
	}
	return f.Stage + "_error"
}

// PanicError carries the value a guard panicked with.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}
