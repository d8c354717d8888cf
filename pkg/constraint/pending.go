package constraint

import "reflect"

// Pending holds an authoritative value and an optional proposed value that
// has been supplied but not yet confirmed. Reads return the authoritative
// value; the proposal survives until it is promoted or discarded.
type Pending[T any] struct {
	Authoritative T
	Proposed      *T
}

// Get returns the authoritative value.
func (p *Pending[T]) Get() T {
	return p.Authoritative
}

// Set writes v to the authoritative value, or to the proposal when pending
// is true.
func (p *Pending[T]) Set(v T, pending bool) {
	if pending {
		p.Proposed = &v
		return
	}
	p.Authoritative = v
}

// Proposal returns the proposed value, if any.
func (p *Pending[T]) Proposal() (T, bool) {
	if p.Proposed == nil {
		var zero T
		return zero, false
	}
	return *p.Proposed, true
}

// HasPending reports whether a non-empty proposal exists.
func (p *Pending[T]) HasPending() bool {
	return p.Proposed != nil && !isEmpty(*p.Proposed)
}

// Promote makes the proposal authoritative.
func (p *Pending[T]) Promote() {
	if p.Proposed != nil {
		p.Authoritative = *p.Proposed
		p.Proposed = nil
	}
}

// Discard drops the proposal.
func (p *Pending[T]) Discard() {
	p.Proposed = nil
}

func isEmpty[T any](v T) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}
