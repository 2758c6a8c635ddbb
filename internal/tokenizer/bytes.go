package tokenizer

// ByteEncoding is the name of the byte-level encoding.
const ByteEncoding = "bytes"

// ByteTokenizer maps every byte to its own token. It needs no downloaded
// ranks, which makes it the offline fallback.
type ByteTokenizer struct{}

// Encode returns the bytes of text.
func (ByteTokenizer) Encode(text string) ([]int32, error) {
	out := make([]int32, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int32(text[i])
	}
	return out, nil
}

// Decode concatenates the bytes. IDs outside [0, 256) are skipped.
func (ByteTokenizer) Decode(tokens []int32) (string, error) {
	b := make([]byte, 0, len(tokens))
	for _, t := range tokens {
		if t >= 0 && t < 256 {
			b = append(b, byte(t))
		}
	}
	return string(b), nil
}

// VocabSize returns 256.
func (ByteTokenizer) VocabSize() int { return 256 }

// Name returns ByteEncoding.
func (ByteTokenizer) Name() string { return ByteEncoding }
