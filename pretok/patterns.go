// Package pretok implements the GPT-2-family regex pre-tokenizer used ahead
// of byte-level BPE merges. Go's regexp (RE2) cannot express the negative
// lookahead `\s+(?!\S)` the reference pattern relies on, so behavior is
// reproduced with a hand-rolled scanner parameterized by a per-model-kind
// Descriptor rather than by a literal regex.
package pretok

// Descriptor selects the scanner behavior for one "pre" metadata kind. The
// six-branch alternation every GPT-2-style pattern shares (contraction, word,
// number run, punctuation run, newline run, trailing whitespace) is fixed;
// a Descriptor only tunes the few points where model families disagree.
type Descriptor struct {
	// DigitRunCap bounds a consecutive digit run (0 means unbounded).
	DigitRunCap int
	// MatchContractions enables the 's/'t/'re/... contraction branch.
	MatchContractions bool
	// PunctuationAbsorbsLeadingSpace allows a punctuation run to swallow one
	// preceding space, matching ` ?[^\s\p{L}\p{N}]+[\r\n]*`.
	PunctuationAbsorbsLeadingSpace bool
	// PunctuationAbsorbsTrailingNewlines allows a punctuation run to also
	// consume trailing \r\n characters.
	PunctuationAbsorbsTrailingNewlines bool
}

// descriptors maps canonical "pre" kind names to their Descriptor. Aliases
// are resolved into one of these canonical names by Resolve.
var descriptors = map[string]Descriptor{
	"gpt2": {
		DigitRunCap:       3,
		MatchContractions: true,
	},
	"llama3": {
		DigitRunCap:                        3,
		MatchContractions:                  true,
		PunctuationAbsorbsLeadingSpace:      true,
		PunctuationAbsorbsTrailingNewlines:  true,
	},
	"deepseek-llm": {
		DigitRunCap:                   0,
		MatchContractions:             false,
		PunctuationAbsorbsLeadingSpace: true,
	},
	"deepseek-coder": {
		DigitRunCap:                   0,
		MatchContractions:             false,
		PunctuationAbsorbsLeadingSpace: true,
	},
	"falcon": {
		DigitRunCap:       0,
		MatchContractions: true,
	},
	"mpt": {
		DigitRunCap:       0,
		MatchContractions: true,
	},
	"starcoder": {
		DigitRunCap:                   0,
		MatchContractions:             false,
		PunctuationAbsorbsLeadingSpace: true,
	},
	"gpt-neox": {
		DigitRunCap:       0,
		MatchContractions: true,
	},
	"bloom": {
		DigitRunCap:       0,
		MatchContractions: false,
	},
	"qwen2": {
		DigitRunCap:                   0,
		MatchContractions:             true,
		PunctuationAbsorbsLeadingSpace: true,
	},
	"chatglm3": {
		DigitRunCap:       0,
		MatchContractions: false,
	},
	"chatglm4": {
		DigitRunCap:       0,
		MatchContractions: false,
	},
	"vikhr": {
		DigitRunCap:       3,
		MatchContractions: true,
	},
	"jais": {
		DigitRunCap:       0,
		MatchContractions: false,
	},
	"command-r": {
		DigitRunCap:                   0,
		MatchContractions:             true,
		PunctuationAbsorbsLeadingSpace: true,
	},
	"dbrx": {
		DigitRunCap:                   0,
		MatchContractions:             true,
		PunctuationAbsorbsLeadingSpace: true,
	},
	"smaug": {
		DigitRunCap:       3,
		MatchContractions: true,
	},
	"poro": {
		DigitRunCap:       0,
		MatchContractions: false,
	},
	"olmo": {
		DigitRunCap:       3,
		MatchContractions: true,
	},
}

// aliases maps alternate "pre" spellings onto the canonical descriptor keys
// above.
var aliases = map[string]string{
	"llama-bpe":       "llama3",
	"llama-v3":        "llama3",
	"deepseek3-llm":   "deepseek-llm",
	"qwen":            "qwen2",
	"gpt-2":           "gpt2",
	"neox":            "gpt-neox",
	"stablelm2":       "gpt-neox",
	"refact":          "starcoder",
	"codeshell":       "starcoder",
}

// Resolve returns the Descriptor for a "pre" metadata kind, resolving
// aliases first. An unrecognized kind falls back to "gpt2", the family every
// byte-level BPE model descends from.
func Resolve(kind string) Descriptor {
	if canon, ok := aliases[kind]; ok {
		kind = canon
	}
	if d, ok := descriptors[kind]; ok {
		return d
	}
	return descriptors["gpt2"]
}
