// Package vocab holds the tokenizer vocabulary model: the plain metadata
// record decoded from a GGUF file (MetadataRecord) and the validated,
// queryable form built from it (Vocabulary).
package vocab

// TokenID identifies a single vocabulary entry. It is dense in [0, V) where V
// is the vocabulary size.
type TokenID int32

// TokenType classifies a vocabulary entry.
type TokenType uint8

const (
	// TokenUndefined marks a slot that was never assigned a kind.
	TokenUndefined TokenType = iota
	// TokenNormal is an ordinary subword/word piece.
	TokenNormal
	// TokenUnknown is the single designated fallback token.
	TokenUnknown
	// TokenControl is a BOS/EOS/pad/etc. special token.
	TokenControl
	// TokenUserDefined is a user-registered special string (e.g. a chat tag).
	TokenUserDefined
	// TokenUnused marks a reserved-but-inactive vocabulary slot.
	TokenUnused
	// TokenByte is one of the 256 `<0xNN>` byte-fallback tokens.
	TokenByte
)

// MetadataRecord is the plain data supplied by the GGUF metadata reader
// (C1). It performs no validation; see Vocabulary for the checked form.
type MetadataRecord struct {
	// Model is the model-kind string (e.g. "llama", "gpt2", "bert", "t5",
	// "rwkv", "plamo2").
	Model string
	// Pre is the pre-tokenizer kind string, consulted only by BPE.
	Pre string

	// Tokens is the ordered token strings; index is the token ID.
	Tokens []string
	// Scores holds per-token f32 scores, or is empty if absent.
	Scores []float32
	// TokenTypes holds per-token kind codes, or is empty if absent (all
	// tokens, including those named by the *ID fields, are then treated as
	// TokenNormal).
	TokenTypes []TokenType
	// Merges is the ordered list of "left right" BPE/WPM merge pairs; index
	// is rank (lower is higher priority).
	Merges []string

	BOSID     int64
	EOSID     int64
	UnknownID int64
	PaddingID int64
	EOTID     int64
	EOGID     int64
	SEPID     int64
	NLID      int64
	MaskID    int64
	FIMPreID  int64
	FIMMidID  int64
	FIMSufID  int64

	AddBOS                  bool
	AddEOS                  bool
	AddSpacePrefix          bool
	CleanSpaces             bool
	RemoveExtraWhitespaces  bool
	EscapeWhitespaces       bool
	TreatWhitespaceAsSuffix bool
	IgnoreMerges            bool

	// HasAddBOS etc. record whether the corresponding metadata key was
	// present at all, so defaults (applied in New: add_bos defaults to
	// whether a BOS id is set, add_space_prefix to true) only apply to
	// genuinely-absent keys. HasAddEOS is recorded but not consulted;
	// add_eos is simply AddEOS.
	HasAddBOS         bool
	HasAddEOS         bool
	HasAddSpacePrefix bool

	// HasBOSID etc. record whether the corresponding *_token_id key was
	// present in the source metadata (an ID of 0 is a legitimate token).
	HasBOSID     bool
	HasEOSID     bool
	HasUnknownID bool
	HasPaddingID bool
	HasEOTID     bool
	HasEOGID     bool
	HasSEPID     bool
	HasNLID      bool
	HasMaskID    bool
	HasFIMPreID  bool
	HasFIMMidID  bool
	HasFIMSufID  bool

	// PrecompiledCharsmap is the optional UGM normalization blob. Unused
	// unless a parser for its format is supplied; see DESIGN.md.
	PrecompiledCharsmap []byte
}

// noID is the sentinel meaning "this special token is not defined".
const noID TokenID = -1
