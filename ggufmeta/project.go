package ggufmeta

import (
	"github.com/gguftok/gguftok/vocab"
)

// keys holds the real GGUF metadata key names this reader recognizes. The
// reference implementation's own naming scheme is followed verbatim so that
// files produced by it project correctly.
const (
	keyArchitecture = "general.architecture"

	keyModel = "tokenizer.ggml.model"
	keyPre   = "tokenizer.ggml.pre"

	keyTokens     = "tokenizer.ggml.tokens"
	keyScores     = "tokenizer.ggml.scores"
	keyTokenTypes = "tokenizer.ggml.token_type"
	keyMerges     = "tokenizer.ggml.merges"

	keyBOSID     = "tokenizer.ggml.bos_token_id"
	keyEOSID     = "tokenizer.ggml.eos_token_id"
	keyUnknownID = "tokenizer.ggml.unknown_token_id"
	keyPaddingID = "tokenizer.ggml.padding_token_id"
	keyEOTID     = "tokenizer.ggml.eot_token_id"
	keyEOGID     = "tokenizer.ggml.eog_token_id"
	keySEPID     = "tokenizer.ggml.seperator_token_id"
	keyNLID      = "tokenizer.ggml.nl_token_id"
	keyMaskID    = "tokenizer.ggml.mask_token_id"
	keyFIMPreID  = "tokenizer.ggml.fim_pre_token_id"
	keyFIMMidID  = "tokenizer.ggml.fim_mid_token_id"
	keyFIMSufID  = "tokenizer.ggml.fim_suf_token_id"

	keyAddBOS                  = "tokenizer.ggml.add_bos_token"
	keyAddEOS                  = "tokenizer.ggml.add_eos_token"
	keyAddSpacePrefix          = "tokenizer.ggml.add_space_prefix"
	keyCleanSpaces             = "tokenizer.ggml.clean_spaces"
	keyRemoveExtraWhitespaces  = "tokenizer.ggml.remove_extra_whitespaces"
	keyEscapeWhitespaces       = "tokenizer.ggml.escape_whitespaces"
	keyTreatWhitespaceAsSuffix = "tokenizer.ggml.treat_whitespace_as_suffix"
	keyIgnoreMerges            = "tokenizer.ggml.ignore_merges"

	keyPrecompiledCharsmap = "tokenizer.ggml.precompiled_charsmap"
)

// MetadataRecord projects the file's recognized tokenizer keys into a
// vocab.MetadataRecord. Keys outside the closed set are ignored.
func (f *File) MetadataRecord() (*vocab.MetadataRecord, error) {
	rec := &vocab.MetadataRecord{}

	if v, ok := f.Get(keyModel); ok {
		rec.Model = v.String()
	} else if v, ok := f.Get(keyArchitecture); ok {
		rec.Model = v.String()
	}
	if v, ok := f.Get(keyPre); ok {
		rec.Pre = v.String()
	}

	if v, ok := f.Get(keyTokens); ok {
		rec.Tokens = v.Strings()
	}
	if v, ok := f.Get(keyScores); ok {
		rec.Scores = v.Floats()
	}
	if v, ok := f.Get(keyTokenTypes); ok {
		ints := v.Ints()
		rec.TokenTypes = make([]vocab.TokenType, len(ints))
		for i, n := range ints {
			rec.TokenTypes[i] = vocab.TokenType(n)
		}
	}
	if v, ok := f.Get(keyMerges); ok {
		rec.Merges = v.Strings()
	}

	setID := func(key string, dst *int64, has *bool) {
		if v, ok := f.Get(key); ok {
			*dst = v.Int()
			*has = true
		}
	}
	setID(keyBOSID, &rec.BOSID, &rec.HasBOSID)
	setID(keyEOSID, &rec.EOSID, &rec.HasEOSID)
	setID(keyUnknownID, &rec.UnknownID, &rec.HasUnknownID)
	setID(keyPaddingID, &rec.PaddingID, &rec.HasPaddingID)
	setID(keyEOTID, &rec.EOTID, &rec.HasEOTID)
	setID(keyEOGID, &rec.EOGID, &rec.HasEOGID)
	setID(keySEPID, &rec.SEPID, &rec.HasSEPID)
	setID(keyNLID, &rec.NLID, &rec.HasNLID)
	setID(keyMaskID, &rec.MaskID, &rec.HasMaskID)
	setID(keyFIMPreID, &rec.FIMPreID, &rec.HasFIMPreID)
	setID(keyFIMMidID, &rec.FIMMidID, &rec.HasFIMMidID)
	setID(keyFIMSufID, &rec.FIMSufID, &rec.HasFIMSufID)

	if v, ok := f.Get(keyAddBOS); ok {
		rec.AddBOS = v.Bool()
		rec.HasAddBOS = true
	}
	if v, ok := f.Get(keyAddEOS); ok {
		rec.AddEOS = v.Bool()
		rec.HasAddEOS = true
	}
	if v, ok := f.Get(keyAddSpacePrefix); ok {
		rec.AddSpacePrefix = v.Bool()
		rec.HasAddSpacePrefix = true
	}
	if v, ok := f.Get(keyCleanSpaces); ok {
		rec.CleanSpaces = v.Bool()
	}
	if v, ok := f.Get(keyRemoveExtraWhitespaces); ok {
		rec.RemoveExtraWhitespaces = v.Bool()
	}
	if v, ok := f.Get(keyEscapeWhitespaces); ok {
		rec.EscapeWhitespaces = v.Bool()
	}
	if v, ok := f.Get(keyTreatWhitespaceAsSuffix); ok {
		rec.TreatWhitespaceAsSuffix = v.Bool()
	}
	if v, ok := f.Get(keyIgnoreMerges); ok {
		rec.IgnoreMerges = v.Bool()
	}
	if v, ok := f.Get(keyPrecompiledCharsmap); ok {
		rec.PrecompiledCharsmap = v.Bytes()
	}

	return rec, nil
}

// Load opens path and returns the validated vocab.Vocabulary built from its
// metadata section in one step; the common case for callers that don't need
// the intermediate MetadataRecord or File.
func Load(path string) (*vocab.Vocabulary, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	rec, err := f.MetadataRecord()
	if err != nil {
		return nil, err
	}
	return vocab.New(rec)
}
