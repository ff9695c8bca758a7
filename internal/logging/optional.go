package logging

// Optional holds a value that may be omitted. The zero value is omitted,
// which is different from a value explicitly equal to a default.
type Optional[T any] struct {
	value T
	set   bool
}

// Some wraps an explicitly provided value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, set: true}
}

// None returns an omitted value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Or returns the value if set, otherwise fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}
