package store

// Pure list reducers backing the optimistic local mutations. Each returns a
// fresh slice and never touches the input, so a failed remote call can keep
// the prior state by simply not applying the reducer.

// prepend returns a new list with item at the front. The relative order of
// the existing items is unchanged; the input list is not modified.
func prepend[T any](list []T, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}

// removeBy returns a new list without the elements matching the predicate.
// Removing an absent element is a no-op that still returns a fresh slice.
func removeBy[T any](list []T, match func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}

// replaceBy swaps the first element matching the predicate for item, keeping
// its position. Returns the new list and whether a match was found; when no
// element matches, the returned list is an unchanged copy.
func replaceBy[T any](list []T, match func(T) bool, item T) ([]T, bool) {
	out := make([]T, len(list))
	copy(out, list)
	for i, v := range out {
		if match(v) {
			out[i] = item
			return out, true
		}
	}
	return out, false
}
