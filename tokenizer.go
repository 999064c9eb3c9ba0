package gguftok

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gguftok/gguftok/engine"
	"github.com/gguftok/gguftok/engine/bpe"
	"github.com/gguftok/gguftok/engine/plamo2"
	"github.com/gguftok/gguftok/engine/rwkv"
	"github.com/gguftok/gguftok/engine/spm"
	"github.com/gguftok/gguftok/engine/ugm"
	"github.com/gguftok/gguftok/engine/wpm"
	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/ggufmeta"
	"github.com/gguftok/gguftok/internal/obslog"
	"github.com/gguftok/gguftok/vocab"
)

// Tokenizer wraps a Vocabulary and the Engine selected for its model kind.
// It is immutable after construction and safe for concurrent use.
type Tokenizer struct {
	vocab  *vocab.Vocabulary
	engine engine.Engine
	kind   string
	loadID uuid.UUID
}

// Load reads a GGUF file's tokenizer metadata and builds a Tokenizer for it.
func Load(path string) (*Tokenizer, error) {
	loadID := uuid.New()
	start := time.Now()

	v, err := ggufmeta.Load(path)
	if err != nil {
		obslog.LoadFailed(loadID, "unknown", err)
		return nil, err
	}
	obslog.LoadStart(loadID, v.Model(), v.Pre(), v.Size())

	t, err := fromVocabulary(v, loadID)
	if err != nil {
		obslog.LoadFailed(loadID, v.Model(), err)
		return nil, err
	}
	obslog.LoadDone(loadID, v.Model(), time.Since(start))
	return t, nil
}

// FromVocabulary builds a Tokenizer directly from an already-parsed
// Vocabulary, without touching the filesystem. Load uses this internally;
// it is exported so callers that already hold a Vocabulary (or tests that
// construct one synthetically) can skip the GGUF file entirely.
func FromVocabulary(v *vocab.Vocabulary) (*Tokenizer, error) {
	return fromVocabulary(v, uuid.New())
}

func fromVocabulary(v *vocab.Vocabulary, loadID uuid.UUID) (*Tokenizer, error) {
	kind, ok := canonicalKind(v.Model())
	if !ok {
		return nil, errs.UnsupportedModelf("tokenizer: unsupported model kind %q", v.Model())
	}
	eng, err := buildEngine(kind, v)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{vocab: v, engine: eng, kind: kind, loadID: loadID}, nil
}

// canonicalKind resolves a GGUF tokenizer.ggml.model string to one of the
// six algorithm families, honoring the architecture aliases spec.md §4.7
// names (mistral/gemma share llama's SPM tokenizer, qwen/qwen2 share gpt2's
// byte-level BPE).
func canonicalKind(model string) (string, bool) {
	switch model {
	case "llama", "mistral", "gemma":
		return "spm", true
	case "gpt2", "qwen", "qwen2":
		return "bpe", true
	case "bert":
		return "wpm", true
	case "t5":
		return "ugm", true
	case "rwkv":
		return "rwkv", true
	case "plamo2":
		return "plamo2", true
	default:
		return "", false
	}
}

func buildEngine(kind string, v *vocab.Vocabulary) (engine.Engine, error) {
	switch kind {
	case "spm":
		return spm.New(v), nil
	case "bpe":
		return bpe.New(v), nil
	case "wpm":
		return wpm.New(v), nil
	case "ugm":
		return ugm.New(v), nil
	case "rwkv":
		return rwkv.New(v)
	case "plamo2":
		return plamo2.New(v), nil
	default:
		return nil, errs.UnsupportedModelf("tokenizer: unsupported model kind %q", kind)
	}
}

// LoadID identifies this Tokenizer instance for log correlation; it is
// assigned once at construction and never changes.
func (t *Tokenizer) LoadID() uuid.UUID { return t.loadID }

// Vocab exposes the underlying vocabulary for metadata queries that have no
// Tokenizer-level wrapper.
func (t *Tokenizer) Vocab() *vocab.Vocabulary { return t.vocab }

// VocabSize returns the number of tokens in the vocabulary.
func (t *Tokenizer) VocabSize() int { return t.vocab.Size() }

// ModelType returns the GGUF tokenizer.ggml.model string this Tokenizer was
// built from (before alias resolution).
func (t *Tokenizer) ModelType() string { return t.vocab.Model() }

// PreType returns the GGUF tokenizer.ggml.pre pre-tokenizer regex family.
func (t *Tokenizer) PreType() string { return t.vocab.Pre() }

func (t *Tokenizer) BOSToken() (vocab.TokenID, bool)    { return t.vocab.BOS() }
func (t *Tokenizer) EOSToken() (vocab.TokenID, bool)    { return t.vocab.EOS() }
func (t *Tokenizer) UnkToken() (vocab.TokenID, bool)    { return t.vocab.Unknown() }
func (t *Tokenizer) PadToken() (vocab.TokenID, bool)    { return t.vocab.Pad() }
func (t *Tokenizer) EOTToken() (vocab.TokenID, bool)    { return t.vocab.EOT() }
func (t *Tokenizer) EOGToken() (vocab.TokenID, bool)    { return t.vocab.EOG() }
func (t *Tokenizer) SEPToken() (vocab.TokenID, bool)    { return t.vocab.SEP() }
func (t *Tokenizer) NLToken() (vocab.TokenID, bool)     { return t.vocab.NL() }
func (t *Tokenizer) MaskToken() (vocab.TokenID, bool)   { return t.vocab.Mask() }
func (t *Tokenizer) FIMPreToken() (vocab.TokenID, bool) { return t.vocab.FIMPre() }
func (t *Tokenizer) FIMMidToken() (vocab.TokenID, bool) { return t.vocab.FIMMid() }
func (t *Tokenizer) FIMSufToken() (vocab.TokenID, bool) { return t.vocab.FIMSuf() }

// TokenToPiece returns the literal token string for id.
func (t *Tokenizer) TokenToPiece(id vocab.TokenID) (string, error) { return t.vocab.Piece(id) }

// TokenType returns id's declared token kind.
func (t *Tokenizer) TokenType(id vocab.TokenID) vocab.TokenType { return t.vocab.Type(id) }

// IsSpecialToken reports whether id is a Control or UserDefined token.
func (t *Tokenizer) IsSpecialToken(id vocab.TokenID) bool { return t.vocab.IsSpecial(id) }

// Encode tokenizes text, optionally adding BOS/EOS per the vocabulary's own
// add_bos/add_eos flags.
func (t *Tokenizer) Encode(text string, addSpecialTokens bool) ([]vocab.TokenID, error) {
	return t.EncodeWithOptions(text, WithAddSpecialTokens(addSpecialTokens))
}

// EncodeWithOptions tokenizes text under the given options (spec.md §4.7).
func (t *Tokenizer) EncodeWithOptions(text string, opts ...EncodeOption) ([]vocab.TokenID, error) {
	var o EncodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if len(text) > MaxInputBytes {
		return nil, errs.TokenizationFailedf("tokenizer: input of %d bytes exceeds the %d byte limit", len(text), MaxInputBytes)
	}

	var ids []vocab.TokenID
	var err error
	if o.ParseSpecial {
		ids, err = t.encodeWithSpecials(text)
	} else {
		ids, err = t.engine.Encode(text)
	}
	if err != nil {
		return nil, err
	}

	if o.AddSpecialTokens {
		if t.vocab.AddBOS() {
			if bos, ok := t.vocab.BOS(); ok {
				ids = append([]vocab.TokenID{bos}, ids...)
			}
		}
		if t.vocab.AddEOS() {
			if eos, ok := t.vocab.EOS(); ok {
				ids = append(ids, eos)
			}
		}
	}

	if len(ids) > MaxOutputTokens {
		return nil, errs.TokenizationFailedf("tokenizer: output of %d tokens exceeds the %d token limit", len(ids), MaxOutputTokens)
	}
	return ids, nil
}

// encodeWithSpecials splits text on leftmost-longest occurrences of any
// registered special-token string, substituting each match by its token id
// verbatim and running the engine over the untouched gaps between them.
func (t *Tokenizer) encodeWithSpecials(text string) ([]vocab.TokenID, error) {
	specials := t.vocab.SpecialStrings()
	if len(specials) == 0 {
		return t.engine.Encode(text)
	}
	sorted := append([]string(nil), specials...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	var ids []vocab.TokenID
	segStart := 0
	flush := func(end int) error {
		if end <= segStart {
			return nil
		}
		segIDs, err := t.engine.Encode(text[segStart:end])
		if err != nil {
			return err
		}
		ids = append(ids, segIDs...)
		return nil
	}

	i := 0
	for i < len(text) {
		matched := ""
		for _, s := range sorted {
			if s != "" && strings.HasPrefix(text[i:], s) {
				matched = s
				break
			}
		}
		if matched == "" {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 0 {
				size = 1
			}
			i += size
			continue
		}
		if err := flush(i); err != nil {
			return nil, err
		}
		id, ok := t.vocab.IDOf(matched)
		if !ok {
			return nil, errs.InvalidMetadataf("tokenizer: special string %q has no vocabulary id", matched)
		}
		ids = append(ids, id)
		i += len(matched)
		segStart = i
	}
	if err := flush(len(text)); err != nil {
		return nil, err
	}
	return ids, nil
}

// EncodeBatch tokenizes each text independently, in order.
func (t *Tokenizer) EncodeBatch(texts []string, addSpecialTokens bool) ([][]vocab.TokenID, error) {
	out := make([][]vocab.TokenID, len(texts))
	for i, text := range texts {
		ids, err := t.Encode(text, addSpecialTokens)
		if err != nil {
			return nil, err
		}
		out[i] = ids
	}
	return out, nil
}

// Decode reassembles ids into text under the given options (spec.md §4.7).
func (t *Tokenizer) Decode(ids []vocab.TokenID, opts ...DecodeOption) (string, error) {
	var o DecodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	pieces, err := t.resolvePieces(ids, o)
	if err != nil {
		return "", err
	}

	size := 0
	for _, p := range pieces {
		size += len(p)
	}
	if size > MaxDecodeIntermediateBytes {
		return "", errs.TokenizationFailedf("tokenizer: decode intermediate of %d bytes exceeds the %d byte limit", size, MaxDecodeIntermediateBytes)
	}

	text, err := t.engine.Detokenize(pieces)
	if err != nil {
		return "", err
	}
	if t.vocab.CleanSpaces() {
		text = cleanSpacesPostProcess(t.kind, text)
	}
	return text, nil
}

// resolvePieces maps ids to their raw piece text via the engine, then
// applies the skip/lstrip/include-special-text policy per id.
func (t *Tokenizer) resolvePieces(ids []vocab.TokenID, o DecodeOptions) ([]string, error) {
	for _, id := range ids {
		if int(id) < 0 || int(id) >= t.vocab.Size() {
			return nil, errs.InvalidTokenf("tokenizer: token id %d out of range [0,%d)", id, t.vocab.Size())
		}
	}

	pieces, err := t.engine.DecodePieces(ids)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(pieces))
	for i, p := range pieces {
		id := ids[i]
		if t.vocab.IsSpecial(id) {
			if o.SkipSpecialTokens {
				continue
			}
			if !o.IncludeSpecialText {
				out = append(out, "")
				continue
			}
		}
		if o.Lstrip {
			p = strings.TrimPrefix(p, " ")
		}
		out = append(out, p)
	}
	return out, nil
}

// DecodeSingle decodes a single token id in isolation.
func (t *Tokenizer) DecodeSingle(id vocab.TokenID) (string, error) {
	return t.Decode([]vocab.TokenID{id})
}

// cleanSpacesPostProcess applies the vocabulary's clean_spaces flag; no
// punctuation or contraction spacing rules are applied. BPE's byte-level inverse
// already produces the exact original spacing, so clean_spaces is a no-op
// there; the phantom-space families (SPM, UGM, WPM) can still carry a
// single leading space out of Detokenize when the original text began with
// one, which clean_spaces strips.
func cleanSpacesPostProcess(kind, text string) string {
	switch kind {
	case "spm", "ugm", "wpm":
		return strings.TrimPrefix(text, " ")
	default:
		return text
	}
}
