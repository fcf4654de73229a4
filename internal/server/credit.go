package server

import "context"

// CreditGate is the external credit-accounting collaborator, consulted as a
// yes/no gate plus a debit call before execution. The engine itself never
// touches accounting.
type CreditGate interface {
	// Allow reports whether the caller may start a run.
	Allow(ctx context.Context, key string) error
	// Debit charges one run. Called only after Allow passes.
	Debit(ctx context.Context, key string) error
}

// allowAll is the default gate when no accounting backend is wired.
type allowAll struct{}

func (allowAll) Allow(ctx context.Context, key string) error { return nil }
func (allowAll) Debit(ctx context.Context, key string) error { return nil }
