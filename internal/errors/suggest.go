package errors

// Nearest returns the candidate with the smallest edit distance to id,
// provided the distance is small enough to be a plausible typo.
// Returns false when no candidate is close.
func Nearest(id string, candidates []string) (string, bool) {
	const maxDistance = 3

	best := ""
	bestDist := maxDistance + 1
	for _, c := range candidates {
		if c == id {
			continue
		}
		d := levenshtein(id, c)
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	if best == "" || bestDist > maxDistance {
		return "", false
	}
	return best, true
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
