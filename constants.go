package gguftok

import "github.com/gguftok/gguftok/engine"

// Resource bounds enforced at the facade boundary (spec.md §5).
const (
	// MaxInputBytes bounds a single Encode call's input text.
	MaxInputBytes = engine.MaxInputBytes

	// MaxOutputTokens bounds a single Encode call's result length.
	MaxOutputTokens = engine.MaxOutputTokens

	// MaxVocabSize bounds the number of tokens a Vocabulary may hold.
	MaxVocabSize = 1 << 20

	// MaxVocabStringBytes bounds the aggregate byte length of all token
	// strings in a Vocabulary.
	MaxVocabStringBytes = 100 << 20 // 100 MiB

	// MaxTokenStringBytes bounds a single token string.
	MaxTokenStringBytes = 64 << 10 // 64 KiB

	// MaxDecodeIntermediateBytes bounds the concatenated piece buffer built
	// during Decode, before the final UTF-8 validity check.
	MaxDecodeIntermediateBytes = 100 << 20 // 100 MiB
)
