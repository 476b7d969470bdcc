package tree

// Equal reports whether a and b have the same shape regardless of entry order.
// Entries are paired by nameKey; fileEqual and directoryEqual compare values.
// Duplicate names are matched as a multiset.
func Equal[N, F, D any](
	a Node[N, F, D],
	b Node[N, F, D],
	nameKey func(N) string,
	fileEqual func(F, F) bool,
	directoryEqual func(D, D) bool,
) bool {
	switch left := a.(type) {
	case *File[N, F, D]:
		right, ok := b.(*File[N, F, D])
		return ok && fileEqual(left.Value, right.Value)
	case *Directory[N, F, D]:
		right, ok := b.(*Directory[N, F, D])
		if !ok || len(left.Entries) != len(right.Entries) || !directoryEqual(left.Value, right.Value) {
			return false
		}
		unmatched := make(map[string][]Node[N, F, D], len(right.Entries))
		for _, entry := range right.Entries {
			key := nameKey(entry.Name)
			unmatched[key] = append(unmatched[key], entry.Node)
		}
		for _, entry := range left.Entries {
			key := nameKey(entry.Name)
			candidates := unmatched[key]
			matchedIndex := -1
			for index, candidate := range candidates {
				if Equal(entry.Node, candidate, nameKey, fileEqual, directoryEqual) {
					matchedIndex = index
					break
				}
			}
			if matchedIndex < 0 {
				return false
			}
			unmatched[key] = append(candidates[:matchedIndex], candidates[matchedIndex+1:]...)
		}
		return true
	default:
		return false
	}
}
