package tokenizer

import (
	"github.com/born-ml/born-dist/internal/tensor"
)

// PaddingIndex is the dense index Vocabulary reserves for padding.
const PaddingIndex = 0

// Vocabulary assigns dense indices, starting at 1, to token IDs in order of
// first appearance. Index 0 is padding.
type Vocabulary struct {
	dense  map[int32]int
	tokens []int32 // dense index -> token ID; tokens[0] is unused
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{dense: make(map[int32]int), tokens: []int32{-1}}
}

// Add registers tokens and returns their dense indices.
func (v *Vocabulary) Add(tokens []int32) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		idx, ok := v.dense[tok]
		if !ok {
			idx = len(v.tokens)
			v.dense[tok] = idx
			v.tokens = append(v.tokens, tok)
		}
		out[i] = idx
	}
	return out
}

// Lookup returns the dense indices of tokens; unknown tokens map to padding.
func (v *Vocabulary) Lookup(tokens []int32) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		out[i] = v.dense[tok]
	}
	return out
}

// Size returns the number of dense indices including padding.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Token returns the token ID of a dense index, or -1 for padding and
// indices out of range.
func (v *Vocabulary) Token(idx int) int32 {
	if idx <= PaddingIndex || idx >= len(v.tokens) {
		return -1
	}
	return v.tokens[idx]
}

// Bigrams returns one sample per adjacent pair of seq: the input is the
// first index and the target the second, both as single-row columns.
func Bigrams[T tensor.Float](seq []int) (inputs, targets [][]T) {
	if len(seq) < 2 {
		return nil, nil
	}
	inputs = make([][]T, len(seq)-1)
	targets = make([][]T, len(seq)-1)
	for i := range inputs {
		inputs[i] = []T{T(seq[i])}
		targets[i] = []T{T(seq[i+1])}
	}
	return inputs, targets
}

// OneHot expands label columns into distributions over n classes. Labels
// outside [0, n) give all-zero columns.
func OneHot[T tensor.Float](labels [][]T, n int) [][]T {
	out := make([][]T, len(labels))
	for j, col := range labels {
		out[j] = make([]T, n*len(col))
		for s, x := range col {
			if c, ok := tensor.Index(x, n); ok {
				out[j][c*len(col)+s] = 1
			}
		}
	}
	return out
}
