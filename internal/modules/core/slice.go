package core

// Map projects every element of source through m, preserving order.
func Map[TSource, TResult any](source []TSource, m func(TSource) TResult) []TResult {
	result := make([]TResult, len(source))
	for i, element := range source {
		result[i] = m(element)
	}

	return result
}
