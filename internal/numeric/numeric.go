package numeric

import "golang.org/x/exp/constraints"

// Min returns the smaller of the two provided values.
// It accepts any ordered type (integers, floats, strings).
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of the two provided values.
// It accepts any ordered type (integers, floats, strings).
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
