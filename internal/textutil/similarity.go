package textutil

// Similarity scores how alike a file name and a catalog title are after
// NormalizeTitle. The score is 2*LCS/(len(a)+len(b)) over runes: symmetric,
// 1 for identical normalized titles and 0 when they share nothing.
func Similarity(filename, catalogName string) float64 {
	return SequenceRatio(NormalizeTitle(filename), NormalizeTitle(catalogName))
}

// SequenceRatio is the longest common subsequence ratio of two strings.
func SequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 2 * float64(lcsLength(ra, rb)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
