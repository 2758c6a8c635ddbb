// Package tokenizer turns text into index sequences an embedding layer can
// consume.
//
// Token IDs from a tokenizer are sparse: a small corpus uses a handful of
// the ~100k cl100k_base IDs. Vocabulary remaps the IDs that actually occur
// to a dense range so the embedding dictionary stays small.
//
// Example:
//
//	tok, err := tokenizer.NewTikToken("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ids, _ := tok.Encode(text)
//	vocab := tokenizer.NewVocabulary()
//	seq := vocab.Add(ids)
//	inputs, targets := tokenizer.Bigrams[float32](seq)
package tokenizer
