// Package gguftok implements a tokenizer library for GGUF-packaged vocabularies,
// covering the six tokenizer families found in GGUF metadata: SentencePiece
// (llama/mistral/gemma), byte-level BPE (gpt2/qwen/qwen2), WordPiece (bert),
// Unigram (t5), RWKV's trie tokenizer, and PLaMo-2's Aho-Corasick-driven
// suffix automaton.
//
// Load reads a GGUF file's tokenizer metadata into a Vocabulary, selects the
// Engine matching its model kind, and returns a Tokenizer ready for Encode
// and Decode. FromVocabulary does the same starting from an already-parsed
// Vocabulary, for callers that obtained one some other way.
package gguftok
