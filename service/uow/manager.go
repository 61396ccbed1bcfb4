package uow

import "context"

type contextKey struct{}

// Manager binds units of work to operation contexts
type Manager struct{}

// NewUnitOfWork creates an unbound unit of work
func (m *Manager) NewUnitOfWork() UnitOfWork {
	return New()
}

// Bind returns ctx carrying unit
func (m *Manager) Bind(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, contextKey{}, unit)
}

// Current returns the unit of work bound to ctx, or a pass-through unit executing items immediately
func (m *Manager) Current(ctx context.Context) UnitOfWork {
	if ctx != nil {
		if unit, ok := ctx.Value(contextKey{}).(UnitOfWork); ok && unit != nil {
			return unit
		}
	}
	return passThrough{}
}

// Bound returns true when ctx carries a unit of work
func (m *Manager) Bound(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(contextKey{}).(UnitOfWork)
	return ok
}

// NewManager creates a manager
func NewManager() *Manager {
	return &Manager{}
}
