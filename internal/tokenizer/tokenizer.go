package tokenizer

// Tokenizer converts between text and token IDs.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the number of distinct token IDs.
	VocabSize() int

	// Name identifies the encoding, e.g. "cl100k_base".
	Name() string
}

// New returns the tokenizer for an encoding name. "bytes" selects
// ByteTokenizer; any other name is a tiktoken encoding.
func New(name string) (Tokenizer, error) {
	if name == ByteEncoding {
		return ByteTokenizer{}, nil
	}
	return NewTikToken(name)
}
