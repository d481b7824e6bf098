package duplicates

// Similarity is the Dice coefficient over character bigrams, counting repeated
// bigrams. Identical strings score 1; otherwise a string shorter than two
// characters scores 0. Characters are runes, not bytes.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}

	intersection := 0
	for i := 0; i < len(rb)-1; i++ {
		key := [2]rune{rb[i], rb[i+1]}
		if counts[key] > 0 {
			counts[key]--
			intersection++
		}
	}

	return 2 * float64(intersection) / float64(len(ra)-1+len(rb)-1)
}
