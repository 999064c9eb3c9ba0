package wpm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

func bertStyleVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	rec := &vocab.MetadataRecord{
		Model:  "bert",
		Tokens: []string{"<unk>", "▁hi", "▁a", "b", "!"},
		TokenTypes: []vocab.TokenType{
			vocab.TokenUnknown, vocab.TokenNormal, vocab.TokenNormal, vocab.TokenNormal, vocab.TokenNormal,
		},
		HasUnknownID: true,
		UnknownID:    0,
	}
	v, err := vocab.New(rec)
	require.NoError(t, err)
	return v
}

func TestEncodeDirectWordMatch(t *testing.T) {
	v := bertStyleVocab(t)
	e := New(v)

	ids, err := e.Encode("hi")
	require.NoError(t, err)

	wantID, ok := v.IDOf("▁hi")
	require.True(t, ok)
	require.Equal(t, []vocab.TokenID{wantID}, ids)
}

func TestEncodeGreedyTwoPieceMatch(t *testing.T) {
	v := bertStyleVocab(t)
	e := New(v)

	ids, err := e.Encode("ab")
	require.NoError(t, err)

	aID, _ := v.IDOf("▁a")
	bID, _ := v.IDOf("b")
	require.Equal(t, []vocab.TokenID{aID, bID}, ids)
}

func TestEncodeSplitsASCIIPunctuationAsOwnWord(t *testing.T) {
	v := bertStyleVocab(t)
	e := New(v)

	ids, err := e.Encode("a!")
	require.NoError(t, err)

	// "!" is split off as its own word and re-prefixed with ▁; since the
	// vocabulary only has a bare "!" (no "▁!"), it falls back to unknown.
	aID, _ := v.IDOf("▁a")
	require.Equal(t, []vocab.TokenID{aID, 0}, ids)
}

func TestEncodeEmptyText(t *testing.T) {
	e := New(bertStyleVocab(t))
	ids, err := e.Encode("")
	require.NoError(t, err)
	require.Nil(t, ids)
}

func TestEncodeFallsBackToUnknownOnNoMatch(t *testing.T) {
	v := bertStyleVocab(t)
	e := New(v)

	ids, err := e.Encode("zzz") // no vocabulary entry covers any prefix of ▁zzz
	require.NoError(t, err)
	require.Equal(t, []vocab.TokenID{0}, ids)
}

func TestEncodeWithNoFallbackFails(t *testing.T) {
	rec := &vocab.MetadataRecord{
		Model:      "bert",
		Tokens:     []string{"▁a"},
		TokenTypes: []vocab.TokenType{vocab.TokenNormal},
	}
	v, err := vocab.New(rec)
	require.NoError(t, err)
	e := New(v)

	_, err = e.Encode("zzz")
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrTokenizationFailed)
}

func TestDetokenizeMapsPhantomSpaceAndDropsLeading(t *testing.T) {
	v := bertStyleVocab(t)
	e := New(v)

	pieces, err := e.DecodePieces([]vocab.TokenID{1, 2})
	require.NoError(t, err)
	require.Equal(t, []string{"▁hi", "▁a"}, pieces)

	text, err := e.Detokenize(pieces)
	require.NoError(t, err)
	require.Equal(t, "hi a", text)
}

func TestSplitASCIIPunctuation(t *testing.T) {
	require.Equal(t, []string{"hello", ",", "world", "!"}, splitASCIIPunctuation("hello,world!"))
}
