// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer turns text into dense index sequences for embedding
// layers.
//
// Example usage:
//
//	import "github.com/born-ml/born-dist/tokenizer"
//
//	tok, err := tokenizer.New("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ids, _ := tok.Encode("the cat sat on the mat")
//	vocab := tokenizer.NewVocabulary()
//	inputs, targets := tokenizer.Bigrams[float32](vocab.Add(ids))
package tokenizer

import (
	"github.com/born-ml/born-dist/internal/tensor"
	"github.com/born-ml/born-dist/internal/tokenizer"
)

// Tokenizer converts between text and token IDs.
type Tokenizer = tokenizer.Tokenizer

// TikToken wraps an OpenAI tiktoken encoding.
type TikToken = tokenizer.TikToken

// ByteTokenizer maps every byte to its own token.
type ByteTokenizer = tokenizer.ByteTokenizer

// Vocabulary remaps sparse token IDs to dense indices; 0 is padding.
type Vocabulary = tokenizer.Vocabulary

// ByteEncoding names ByteTokenizer in New.
const ByteEncoding = tokenizer.ByteEncoding

// PaddingIndex is the dense index reserved for padding.
const PaddingIndex = tokenizer.PaddingIndex

// New returns the tokenizer for an encoding name.
func New(name string) (Tokenizer, error) { return tokenizer.New(name) }

// NewTikToken loads a tiktoken encoding such as "cl100k_base".
func NewTikToken(encodingName string) (*TikToken, error) { return tokenizer.NewTikToken(encodingName) }

// NewTikTokenForModel loads the encoding of an OpenAI model name.
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	return tokenizer.NewTikTokenForModel(modelName)
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary() *Vocabulary { return tokenizer.NewVocabulary() }

// Bigrams returns one (input, target) sample per adjacent pair of seq.
func Bigrams[T tensor.Float](seq []int) (inputs, targets [][]T) { return tokenizer.Bigrams[T](seq) }

// OneHot expands label columns into distributions over n classes.
func OneHot[T tensor.Float](labels [][]T, n int) [][]T { return tokenizer.OneHot(labels, n) }
