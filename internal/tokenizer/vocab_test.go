package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularyIsDense(t *testing.T) {
	v := NewVocabulary()
	assert.Equal(t, 1, v.Size())

	seq := v.Add([]int32{9000, 12, 9000, 77})
	assert.Equal(t, []int{1, 2, 1, 3}, seq)
	assert.Equal(t, 4, v.Size())
	assert.Equal(t, int32(12), v.Token(2))
	assert.Equal(t, int32(-1), v.Token(PaddingIndex))
	assert.Equal(t, int32(-1), v.Token(4))

	assert.Equal(t, []int{3, PaddingIndex}, v.Lookup([]int32{77, 5}))
	assert.Equal(t, 4, v.Size(), "lookup does not grow the vocabulary")
}

func TestBigrams(t *testing.T) {
	inputs, targets := Bigrams[float32]([]int{1, 2, 1, 3})
	assert.Equal(t, [][]float32{{1}, {2}, {1}}, inputs)
	assert.Equal(t, [][]float32{{2}, {1}, {3}}, targets)

	in64, tg64 := Bigrams[float64]([]int{5})
	assert.Nil(t, in64)
	assert.Nil(t, tg64)
}

func TestOneHot(t *testing.T) {
	got := OneHot([][]float64{{2}, {0}, {7}}, 3)
	assert.Equal(t, [][]float64{{0, 0, 1}, {1, 0, 0}, {0, 0, 0}}, got)

	// Two positions: rows are c*2 + s.
	got = OneHot([][]float64{{1, 0}}, 2)
	assert.Equal(t, [][]float64{{0, 1, 1, 0}}, got)
}
