// Package ptr builds pointers for the optional fields of cases and options.
package ptr

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// Priority returns a pointer to p, for cases.Case.Priority.
func Priority(p int16) *int16 {
	return &p
}

// Deref returns *p, or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
