package manager

import (
	"context"
	"fmt"

	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/policy"
)

// Binding fixes a guard list and policy snapshot to a manager so text can
// be filtered at a function boundary.
type Binding struct {
	manager *Manager
	guards  []guard.Guard
	policy  *policy.Policy
}

// Bind returns a Binding. guards is copied; pol is used as given and must
// not be modified afterwards.
func Bind(m *Manager, guards []guard.Guard, pol *policy.Policy) *Binding {
	return &Binding{
		manager: m,
		guards:  append([]guard.Guard(nil), guards...),
		policy:  pol,
	}
}

// Apply runs text through the bound guards. The returned text is the run's
// output; err is ErrBlocked, ErrFailed or ErrCancelled (wrapping the cause)
// when the run did not complete.
func (b *Binding) Apply(ctx context.Context, text string) (string, *RunResult, error) {
	res, err := b.manager.Run(ctx, text, b.guards, b.policy)
	if err != nil {
		return res.OutputText, res, fmt.Errorf("%w: %w", ErrFailed, err)
	}
	switch res.Status {
	case StatusBlocked:
		return res.OutputText, res, ErrBlocked
	case StatusFailed:
		return res.OutputText, res, fmt.Errorf("%w: %w", ErrFailed, res.Err)
	case StatusCancelled:
		return res.OutputText, res, fmt.Errorf("%w: %w", ErrCancelled, res.Err)
	}
	return res.OutputText, res, nil
}

// Wrap returns fn with its string result filtered through b. An error from
// fn is returned as is and no guards run.
func Wrap[A any](b *Binding, fn func(context.Context, A) (string, error)) func(context.Context, A) (string, error) {
	return func(ctx context.Context, arg A) (string, error) {
		out, err := fn(ctx, arg)
		if err != nil {
			return out, err
		}
		filtered, _, err := b.Apply(ctx, out)
		return filtered, err
	}
}
