package kvx

// Match reports whether key matches a glob pattern in the subset used by
// SCAN MATCH: '*' for any run, '?' for one byte, '\' to escape.
func Match(pattern, key string) bool {
	p, k := 0, 0
	starP, starK := -1, 0
	for k < len(key) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			starP, starK = p, k
			p++
		case p < len(pattern) && pattern[p] == '?':
			p++
			k++
		case p+1 < len(pattern) && pattern[p] == '\\' && pattern[p+1] == key[k]:
			p += 2
			k++
		case p < len(pattern) && pattern[p] != '\\' && pattern[p] == key[k]:
			p++
			k++
		case starP >= 0:
			starK++
			p, k = starP+1, starK
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
