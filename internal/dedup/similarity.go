package dedup

import "strings"

// Similarity scores how alike two document bodies are, in [0,1].
// The algorithm is deliberately pluggable; the filter only needs a score
// to compare against the configured threshold.
type Similarity interface {
	Score(a, b string) float64
}

// Jaccard computes Jaccard similarity over word shingles. It is cheap,
// order-sensitive enough for prose, and returns 1.0 for identical bodies.
type Jaccard struct {
	// ShingleSize is the number of consecutive words per shingle.
	// Values below 1 are treated as 3.
	ShingleSize int
}

var _ Similarity = Jaccard{}

// Score returns |shingles(a) ∩ shingles(b)| / |shingles(a) ∪ shingles(b)|.
func (j Jaccard) Score(a, b string) float64 {
	size := j.ShingleSize
	if size < 1 {
		size = 3
	}

	sa := shingles(a, size)
	sb := shingles(b, size)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	intersection := 0
	for s := range sa {
		if sb[s] {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	return float64(intersection) / float64(union)
}

// shingles returns the set of size-word windows over the lower-cased text.
// Texts shorter than one window yield a single shingle of the whole text.
func shingles(s string, size int) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	out := make(map[string]bool)

	if len(words) == 0 {
		return out
	}
	if len(words) <= size {
		out[strings.Join(words, " ")] = true
		return out
	}

	for i := 0; i+size <= len(words); i++ {
		out[strings.Join(words[i:i+size], " ")] = true
	}
	return out
}
