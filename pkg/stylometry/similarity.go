package stylometry

import (
	"strings"
)

// ShingleSize is the number of consecutive words in one shingle.
const ShingleSize = 5

// Similarity returns the 0-100 Jaccard overlap of the word shingles of a and b.
// Texts shorter than one shingle have no overlap.
func Similarity(a, b string) float64 {
	return round(jaccard(shingleSet(tokenize(a), ShingleSize), shingleSet(tokenize(b), ShingleSize)) * 100)
}

// MaxSimilarity returns the highest Similarity between text and any document in corpus.
func MaxSimilarity(text string, corpus []string) float64 {
	set := shingleSet(tokenize(text), ShingleSize)
	if len(set) == 0 {
		return 0
	}
	best := 0.0
	for _, doc := range corpus {
		if j := jaccard(set, shingleSet(tokenize(doc), ShingleSize)); j > best {
			best = j
		}
	}
	return round(best * 100)
}

func shingleSet(words []string, n int) map[string]struct{} {
	out := map[string]struct{}{}
	if len(words) < n {
		return out
	}
	for i := 0; i+n <= len(words); i++ {
		out[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
