// Package engine declares the shared contract every tokenization algorithm
// (SPM, BPE, WPM, UGM, RWKV, PLaMo-2) satisfies, so the facade can dispatch
// on the vocabulary's model kind without knowing which concrete algorithm it
// holds.
package engine

import "github.com/gguftok/gguftok/vocab"

// MaxOutputTokens bounds any single Encode call's result length.
const MaxOutputTokens = 1 << 20

// MaxInputBytes bounds a single Encode call's input text, applied both at
// the facade boundary and again by any engine whose own text transforms
// (e.g. SPM's space-prefix/phantom-space substitution) can grow the text
// past what the facade already checked.
const MaxInputBytes = 10 << 20 // 10 MiB

// Engine turns text into vocabulary token IDs and back. Implementations
// never mutate the vocabulary, and any state they change after
// construction (BPE's fragment cache) is guarded by a mutex, so a single
// Engine is safe to share across goroutines.
type Engine interface {
	// Encode tokenizes text against the vocabulary the Engine was built
	// from. It never applies BOS/EOS or special-token splitting — that is
	// the facade's job.
	Encode(text string) ([]vocab.TokenID, error)

	// DecodePieces returns the literal piece text for each token id, in
	// order, before any engine-specific detokenization (▁→space, byte
	// bijection inverse, byte-fallback reassembly) is applied. The facade
	// combines these with engine-specific cleanup.
	DecodePieces(ids []vocab.TokenID) ([]string, error)

	// Detokenize joins already-resolved pieces into final decoded text,
	// applying this engine's family of cleanup rules (space marker
	// inversion, byte bijection inverse, or byte-fallback reassembly).
	Detokenize(pieces []string) (string, error)
}
