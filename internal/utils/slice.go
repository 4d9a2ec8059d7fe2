package utils

// EmptySliceIfNil returns an empty slice if slice is nil, it is mostly used before JSON encoding.
func EmptySliceIfNil[T any](slice []T) []T {
	if slice == nil {
		return make([]T, 0)
	}
	return slice
}
