package vocab

import (
	"strings"

	"github.com/gguftok/gguftok/errs"
)

// Size limits enforced at construction (§3, §5).
const (
	MaxVocabSize      = 1 << 20       // 1,048,576 tokens
	MaxTokenStringLen = 64 * 1024     // 64 KiB
	MaxAggregateBytes = 100 * 1 << 20 // 100 MiB
)

func invalidMetadataf(format string, args ...any) error {
	return errs.InvalidMetadataf(format, args...)
}

// Vocabulary is the validated, queryable form of a MetadataRecord (C2). It is
// immutable after construction and safe to share across goroutines without
// synchronization.
type Vocabulary struct {
	model string
	pre   string

	idToString []string
	stringToID map[string]TokenID
	scores     []float32
	kinds      []TokenType
	mergeRank  map[string]int // "left right" -> rank

	byteToken [256]TokenID // byteToken[b] is the `<0xNN>` token id, or noID

	bos, eos, unk, pad      TokenID
	eot, eog, sep, nl, mask TokenID
	fimPre, fimMid, fimSuf  TokenID
	unknownDefined          bool
	maxTokenLen             int

	addBOS                  bool
	addEOS                  bool
	addSpacePrefix          bool
	cleanSpaces             bool
	removeExtraWhitespaces  bool
	escapeWhitespaces       bool
	treatWhitespaceAsSuffix bool
	ignoreMerges            bool

	precompiledCharsmap []byte
}

// New validates rec and builds a Vocabulary, or returns an error wrapping
// ErrInvalidMetadata.
func New(rec *MetadataRecord) (*Vocabulary, error) {
	v := len(rec.Tokens)
	if v == 0 {
		return nil, invalidMetadataf("vocabulary has zero tokens")
	}
	if v > MaxVocabSize {
		return nil, invalidMetadataf("vocabulary size %d exceeds limit %d", v, MaxVocabSize)
	}
	if len(rec.Scores) != 0 && len(rec.Scores) != v {
		return nil, invalidMetadataf("scores length %d does not match vocabulary size %d", len(rec.Scores), v)
	}
	if len(rec.TokenTypes) != 0 && len(rec.TokenTypes) != v {
		return nil, invalidMetadataf("token_type length %d does not match vocabulary size %d", len(rec.TokenTypes), v)
	}

	vc := &Vocabulary{
		model:      rec.Model,
		pre:        rec.Pre,
		idToString: append([]string(nil), rec.Tokens...),
		stringToID: make(map[string]TokenID, v),
	}
	var aggregateBytes int
	for id, tok := range vc.idToString {
		if len(tok) > MaxTokenStringLen {
			return nil, invalidMetadataf("token %d string length %d exceeds limit %d", id, len(tok), MaxTokenStringLen)
		}
		aggregateBytes += len(tok)
		if len(tok) > vc.maxTokenLen {
			vc.maxTokenLen = len(tok)
		}
		if _, dup := vc.stringToID[tok]; dup {
			return nil, invalidMetadataf("duplicate token string %q", tok)
		}
		vc.stringToID[tok] = TokenID(id)
	}
	if aggregateBytes > MaxAggregateBytes {
		return nil, invalidMetadataf("aggregate token byte length %d exceeds limit %d", aggregateBytes, MaxAggregateBytes)
	}

	vc.scores = append([]float32(nil), rec.Scores...)
	vc.kinds = append([]TokenType(nil), rec.TokenTypes...)
	if len(vc.kinds) == 0 {
		vc.kinds = make([]TokenType, v)
		for i := range vc.kinds {
			vc.kinds[i] = TokenNormal
		}
	}

	unkCount := 0
	for _, k := range vc.kinds {
		if k == TokenUnknown {
			unkCount++
		}
	}
	if unkCount > 1 {
		return nil, invalidMetadataf("vocabulary declares %d Unknown-kind tokens, at most one is allowed", unkCount)
	}

	for i := range vc.byteToken {
		vc.byteToken[i] = noID
	}
	for id, tok := range vc.idToString {
		if b, ok := parseByteToken(tok); ok {
			vc.byteToken[b] = TokenID(id)
		}
	}

	resolve := func(name string, has bool, val int64) (TokenID, error) {
		if !has {
			return noID, nil
		}
		if val < 0 || val >= int64(v) {
			return noID, invalidMetadataf("%s id %d out of range [0,%d)", name, val, v)
		}
		return TokenID(val), nil
	}

	var err error
	if vc.bos, err = resolve("bos_token_id", rec.HasBOSID, rec.BOSID); err != nil {
		return nil, err
	}
	if vc.eos, err = resolve("eos_token_id", rec.HasEOSID, rec.EOSID); err != nil {
		return nil, err
	}
	if vc.unk, err = resolve("unknown_token_id", rec.HasUnknownID, rec.UnknownID); err != nil {
		return nil, err
	}
	if vc.pad, err = resolve("padding_token_id", rec.HasPaddingID, rec.PaddingID); err != nil {
		return nil, err
	}
	if vc.eot, err = resolve("eot_token_id", rec.HasEOTID, rec.EOTID); err != nil {
		return nil, err
	}
	if vc.eog, err = resolve("eog_token_id", rec.HasEOGID, rec.EOGID); err != nil {
		return nil, err
	}
	if vc.sep, err = resolve("sep_token_id", rec.HasSEPID, rec.SEPID); err != nil {
		return nil, err
	}
	if vc.nl, err = resolve("nl_token_id", rec.HasNLID, rec.NLID); err != nil {
		return nil, err
	}
	if vc.mask, err = resolve("mask_token_id", rec.HasMaskID, rec.MaskID); err != nil {
		return nil, err
	}
	if vc.fimPre, err = resolve("fim_pre_token_id", rec.HasFIMPreID, rec.FIMPreID); err != nil {
		return nil, err
	}
	if vc.fimMid, err = resolve("fim_mid_token_id", rec.HasFIMMidID, rec.FIMMidID); err != nil {
		return nil, err
	}
	if vc.fimSuf, err = resolve("fim_suf_token_id", rec.HasFIMSufID, rec.FIMSufID); err != nil {
		return nil, err
	}
	vc.unknownDefined = vc.unk != noID || unkCount == 1
	if vc.unk == noID && unkCount == 1 {
		for id, k := range vc.kinds {
			if k == TokenUnknown {
				vc.unk = TokenID(id)
				break
			}
		}
	}

	vc.mergeRank = make(map[string]int, len(rec.Merges))
	for i, m := range rec.Merges {
		left, right, ok := strings.Cut(m, " ")
		if !ok {
			return nil, invalidMetadataf("malformed merge pair %q at rank %d", m, i)
		}
		if _, ok := vc.stringToID[left]; !ok {
			return nil, invalidMetadataf("merge %q at rank %d: left component %q is not a known token", m, i, left)
		}
		if _, ok := vc.stringToID[right]; !ok {
			return nil, invalidMetadataf("merge %q at rank %d: right component %q is not a known token", m, i, right)
		}
		if _, ok := vc.stringToID[left+right]; !ok {
			return nil, invalidMetadataf("merge %q at rank %d: result %q is not a known token", m, i, left+right)
		}
		if _, exists := vc.mergeRank[left+" "+right]; exists {
			continue // keep first occurrence; later duplicates are harmless
		}
		vc.mergeRank[left+" "+right] = i
	}

	vc.addBOS = rec.AddBOS
	if !rec.HasAddBOS {
		vc.addBOS = vc.bos != noID
	}
	vc.addEOS = rec.AddEOS
	vc.addSpacePrefix = rec.AddSpacePrefix
	if !rec.HasAddSpacePrefix {
		vc.addSpacePrefix = true
	}
	vc.cleanSpaces = rec.CleanSpaces
	vc.removeExtraWhitespaces = rec.RemoveExtraWhitespaces
	vc.escapeWhitespaces = rec.EscapeWhitespaces
	vc.treatWhitespaceAsSuffix = rec.TreatWhitespaceAsSuffix
	vc.ignoreMerges = rec.IgnoreMerges
	vc.precompiledCharsmap = append([]byte(nil), rec.PrecompiledCharsmap...)

	if rec.Model == "plamo2" {
		for b := 0; b < 256; b++ {
			if vc.byteToken[b] == noID {
				return nil, invalidMetadataf("plamo2 requires all 256 <0xNN> byte tokens, missing byte 0x%02X", b)
			}
		}
	}

	return vc, nil
}

func parseByteToken(tok string) (byte, bool) {
	if len(tok) != 6 || !strings.HasPrefix(tok, "<0x") || tok[5] != '>' {
		return 0, false
	}
	hi, ok1 := hexDigit(tok[3])
	lo, ok2 := hexDigit(tok[4])
	if !ok1 || !ok2 {
		return 0, false
	}
	return hi<<4 | lo, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	default:
		return 0, false
	}
}

// Size returns the vocabulary size V.
func (vc *Vocabulary) Size() int { return len(vc.idToString) }

// Model returns the model-kind string (e.g. "llama", "gpt2").
func (vc *Vocabulary) Model() string { return vc.model }

// Pre returns the pre-tokenizer kind string.
func (vc *Vocabulary) Pre() string { return vc.pre }

// Piece returns the token string for id, or an error if id is out of range.
func (vc *Vocabulary) Piece(id TokenID) (string, error) {
	if id < 0 || int(id) >= len(vc.idToString) {
		return "", errs.InvalidTokenf("token id %d out of range [0,%d)", id, len(vc.idToString))
	}
	return vc.idToString[id], nil
}

// IDOf returns the id for a piece string, and whether it exists.
func (vc *Vocabulary) IDOf(piece string) (TokenID, bool) {
	id, ok := vc.stringToID[piece]
	return id, ok
}

// Score returns the f32 score for id, or 0 if scores are absent.
func (vc *Vocabulary) Score(id TokenID) float32 {
	if int(id) < 0 || int(id) >= len(vc.scores) {
		return 0
	}
	return vc.scores[id]
}

// Type returns the TokenType for id.
func (vc *Vocabulary) Type(id TokenID) TokenType {
	if int(id) < 0 || int(id) >= len(vc.kinds) {
		return TokenUndefined
	}
	return vc.kinds[id]
}

// MergeRank returns the rank of the merge pair (left, right), and whether it
// exists. Lower rank is higher priority.
func (vc *Vocabulary) MergeRank(left, right string) (int, bool) {
	r, ok := vc.mergeRank[left+" "+right]
	return r, ok
}

// ByteToken returns the `<0xNN>` token id for byte b, if present.
func (vc *Vocabulary) ByteToken(b byte) (TokenID, bool) {
	id := vc.byteToken[b]
	return id, id != noID
}

// IsByteToken reports whether id is a `<0xNN>` byte-fallback token, and if
// so, the byte value it represents.
func (vc *Vocabulary) IsByteToken(id TokenID) (byte, bool) {
	for b, tid := range vc.byteToken {
		if tid == id {
			return byte(b), true
		}
	}
	return 0, false
}

// MaxTokenLength returns the byte length of the longest token string.
func (vc *Vocabulary) MaxTokenLength() int { return vc.maxTokenLen }

// BOS, EOS, Unknown, Pad, EOT, EOG, SEP, NL, Mask, FIMPre, FIMMid, FIMSuf
// return the corresponding special token id and whether it is defined.
func (vc *Vocabulary) BOS() (TokenID, bool)     { return defined(vc.bos) }
func (vc *Vocabulary) EOS() (TokenID, bool)     { return defined(vc.eos) }
func (vc *Vocabulary) Unknown() (TokenID, bool) { return defined(vc.unk) }
func (vc *Vocabulary) Pad() (TokenID, bool)     { return defined(vc.pad) }
func (vc *Vocabulary) EOT() (TokenID, bool)     { return defined(vc.eot) }
func (vc *Vocabulary) EOG() (TokenID, bool)    { return defined(vc.eog) }
func (vc *Vocabulary) SEP() (TokenID, bool)    { return defined(vc.sep) }
func (vc *Vocabulary) NL() (TokenID, bool)     { return defined(vc.nl) }
func (vc *Vocabulary) Mask() (TokenID, bool)   { return defined(vc.mask) }
func (vc *Vocabulary) FIMPre() (TokenID, bool) { return defined(vc.fimPre) }
func (vc *Vocabulary) FIMMid() (TokenID, bool) { return defined(vc.fimMid) }
func (vc *Vocabulary) FIMSuf() (TokenID, bool) { return defined(vc.fimSuf) }

func defined(id TokenID) (TokenID, bool) { return id, id != noID }

// AddBOS, AddEOS, AddSpacePrefix, CleanSpaces, RemoveExtraWhitespaces,
// EscapeWhitespaces, TreatWhitespaceAsSuffix, IgnoreMerges return the
// corresponding configuration flags.
func (vc *Vocabulary) AddBOS() bool                  { return vc.addBOS }
func (vc *Vocabulary) AddEOS() bool                  { return vc.addEOS }
func (vc *Vocabulary) AddSpacePrefix() bool          { return vc.addSpacePrefix }
func (vc *Vocabulary) CleanSpaces() bool             { return vc.cleanSpaces }
func (vc *Vocabulary) RemoveExtraWhitespaces() bool  { return vc.removeExtraWhitespaces }
func (vc *Vocabulary) EscapeWhitespaces() bool       { return vc.escapeWhitespaces }
func (vc *Vocabulary) TreatWhitespaceAsSuffix() bool { return vc.treatWhitespaceAsSuffix }
func (vc *Vocabulary) IgnoreMerges() bool            { return vc.ignoreMerges }

// PrecompiledCharsmap returns the optional UGM normalization blob, or nil.
func (vc *Vocabulary) PrecompiledCharsmap() []byte { return vc.precompiledCharsmap }

// IsSpecial reports whether id's kind is Control or UserDefined.
func (vc *Vocabulary) IsSpecial(id TokenID) bool {
	k := vc.Type(id)
	return k == TokenControl || k == TokenUserDefined
}

// SpecialStrings returns the piece text of every Control/UserDefined token,
// for use in parse_special leftmost-longest matching (facade, spec.md §4.7).
func (vc *Vocabulary) SpecialStrings() []string {
	var out []string
	for id, k := range vc.kinds {
		if k == TokenControl || k == TokenUserDefined {
			out = append(out, vc.idToString[id])
		}
	}
	return out
}

