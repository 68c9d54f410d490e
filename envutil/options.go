package envutil

// Option adjusts a Reader before its value is resolved. The typed accessors
// (String, Bool, Int, Duration, SlogLevel) apply options in order, so later
// options observe the effect of earlier ones.
type Option[T any] func(Reader[T]) Reader[T]

// Default supplies the value to use when the variable is absent.
//
//	timeout := envutil.Duration(ctx, "WAIT_TIMEOUT", envutil.Default(10*time.Minute))
func Default[T any](dfl T) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithDefault(dfl)
	}
}

// IfMissing turns an absent variable into the given error instead of an
// empty value.
func IfMissing[T any](err error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithErrorIfMissing(err)
	}
}

// Fallback consults another Reader when this one has no value, typically a
// second variable name kept for compatibility.
func Fallback[T any](f Reader[T]) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithFallback(f)
	}
}

// Validate rejects values the caller cannot use. An error from f replaces
// the Reader's value.
func Validate[T any](f func(T) error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.Map(func(val T) (T, error) {
			return val, f(val)
		})
	}
}
