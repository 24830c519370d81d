package service

// Optional is an update value for a nullable field. Set marks the field as
// present in the request; a nil Value then clears it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present value that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Apply writes the value into dst when it is present.
func (o Optional[T]) Apply(dst **T) {
	if o.Set {
		*dst = o.Value
	}
}
