package gguftok

// EncodeOptions controls Tokenizer.EncodeWithOptions (spec.md §4.7).
type EncodeOptions struct {
	// AddSpecialTokens prepends BOS and appends EOS when the vocabulary
	// flags request them and the corresponding ID is defined.
	AddSpecialTokens bool
	// ParseSpecial, when true, pre-scans text for exact occurrences of any
	// registered special-token string (leftmost-longest) and substitutes
	// each match by its token ID verbatim, encoding the gaps normally.
	ParseSpecial bool
}

// EncodeOption configures an EncodeOptions value.
type EncodeOption func(*EncodeOptions)

// WithAddSpecialTokens toggles BOS/EOS injection.
func WithAddSpecialTokens(add bool) EncodeOption {
	return func(o *EncodeOptions) { o.AddSpecialTokens = add }
}

// WithParseSpecial toggles special-token string splitting.
func WithParseSpecial(parse bool) EncodeOption {
	return func(o *EncodeOptions) { o.ParseSpecial = parse }
}

// DecodeOptions controls Tokenizer.Decode (spec.md §4.7).
type DecodeOptions struct {
	// SkipSpecialTokens omits Control/UserDefined tokens from the output
	// entirely.
	SkipSpecialTokens bool
	// Lstrip strips a single leading ASCII space from each piece's text as
	// the engine's DecodePieces returns it, before detokenization; a leading
	// ▁ marker or byte-level space rune in a piece is left in place.
	Lstrip bool
	// IncludeSpecialText emits a special token's literal piece text rather
	// than an empty string, when SkipSpecialTokens is false.
	IncludeSpecialText bool
}

// DecodeOption configures a DecodeOptions value.
type DecodeOption func(*DecodeOptions)

// WithSkipSpecialTokens toggles omission of special tokens from decoded text.
func WithSkipSpecialTokens(skip bool) DecodeOption {
	return func(o *DecodeOptions) { o.SkipSpecialTokens = skip }
}

// WithLstrip toggles stripping a single leading space from each piece.
func WithLstrip(strip bool) DecodeOption {
	return func(o *DecodeOptions) { o.Lstrip = strip }
}

// WithIncludeSpecialText toggles emitting special tokens' literal text.
func WithIncludeSpecialText(include bool) DecodeOption {
	return func(o *DecodeOptions) { o.IncludeSpecialText = include }
}
