package util

import (
	"fmt"
	"slices"
	"strings"
)

// EqualSlices compares a and b element-wise with equal. With ignoreOrder
// the slices are compared as multisets, ordered by their printed form.
func EqualSlices[T any](a, b []T, equal func(x, y T) bool, ignoreOrder bool) bool {
	if len(a) != len(b) {
		return false
	}

	if ignoreOrder {
		byText := func(x, y T) int { return strings.Compare(fmt.Sprint(x), fmt.Sprint(y)) }
		a = slices.Clone(a)
		b = slices.Clone(b)
		slices.SortFunc(a, byText)
		slices.SortFunc(b, byText)
	}

	return slices.EqualFunc(a, b, equal)
}

// Same is an equality func for comparable types.
func Same[T comparable](x, y T) bool {
	return x == y
}
