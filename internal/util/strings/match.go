package strings

// Match reports whether s matches the glob pattern. '*' matches zero or more
// bytes and '?' matches exactly one. Matching is case-sensitive and every
// other byte in pattern is literal.
func Match(s, pattern string) bool {
	// Exact match
	if pattern == s {
		return true
	}

	// Wildcard match
	if pattern == "*" {
		return true
	}

	// Iterative match with single-star backtracking.
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '?' || pattern[pi] == s[si]):
			si++
			pi++
		case pi < len(pattern) && pattern[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
