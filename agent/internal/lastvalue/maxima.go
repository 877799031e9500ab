package lastvalue

// MaxFunc returns every element of domain whose rank is maximal under
// compare, in the order they appear in domain.
//
// rank is called exactly once per element, in domain order. An element for
// which rank reports false has no ranking value and never wins, so a domain
// where nothing is ranked yields an empty result.
func MaxFunc[T, K any](domain []T, rank func(T) (K, bool), compare func(a, b K) int) []T {
	var (
		best  K
		found bool
		out   []T
	)
	for _, x := range domain {
		k, ok := rank(x)
		if !ok {
			continue
		}
		if !found {
			best, found = k, true
			out = append(out, x)
			continue
		}
		switch c := compare(k, best); {
		case c > 0:
			best = k
			out = append(out[:0], x)
		case c == 0:
			out = append(out, x)
		}
	}
	return out
}
