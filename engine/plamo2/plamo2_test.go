package plamo2

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gguftok/gguftok/vocab"
)

// plamoVocab builds a PLaMo-2 vocabulary with all 256 mandatory byte tokens
// plus whatever extra tokens the test supplies.
func plamoVocab(t *testing.T, extraTokens []string, extraScores []float32, extraTypes []vocab.TokenType) *vocab.Vocabulary {
	t.Helper()
	tokens := make([]string, 0, 256+len(extraTokens))
	scores := make([]float32, 0, 256+len(extraTokens))
	types := make([]vocab.TokenType, 0, 256+len(extraTokens))
	for b := 0; b < 256; b++ {
		tokens = append(tokens, fmt.Sprintf("<0x%02X>", b))
		scores = append(scores, 0)
		types = append(types, vocab.TokenByte)
	}
	tokens = append(tokens, extraTokens...)
	scores = append(scores, extraScores...)
	types = append(types, extraTypes...)

	rec := &vocab.MetadataRecord{
		Model:      "plamo2",
		Tokens:     tokens,
		Scores:     scores,
		TokenTypes: types,
	}
	v, err := vocab.New(rec)
	require.NoError(t, err)
	return v
}

// abVocab gives "ab" two competing segmentations: the single piece "ab"
// versus "a"+"b", each scored so the single piece wins, mirroring the UGM
// engine's equivalent fixture.
func abVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	return plamoVocab(t,
		[]string{"ab", "a", "b"},
		[]float32{-1.0, -2.0, -2.0},
		[]vocab.TokenType{vocab.TokenNormal, vocab.TokenNormal, vocab.TokenNormal},
	)
}

func TestEncodePrefersHigherScoringSegmentation(t *testing.T) {
	v := abVocab(t)
	e := New(v)

	ids, err := e.Encode("ab")
	require.NoError(t, err)

	abID, _ := v.IDOf("ab")
	require.Equal(t, []vocab.TokenID{abID}, ids)
}

func TestEncodeEmptyText(t *testing.T) {
	e := New(abVocab(t))
	ids, err := e.Encode("")
	require.NoError(t, err)
	require.Nil(t, ids)
}

func TestEncodeFallsBackToByteTokenForUncoveredText(t *testing.T) {
	v := abVocab(t)
	e := New(v)

	ids, err := e.Encode("z")
	require.NoError(t, err)

	wantID, ok := v.ByteToken('z')
	require.True(t, ok)
	require.Equal(t, []vocab.TokenID{wantID}, ids)
}

func TestEncodeExpandsMultiByteCodepointThroughByteTokens(t *testing.T) {
	v := abVocab(t)
	e := New(v)

	// U+00E9 ("é") encodes as the two UTF-8 bytes 0xC3 0xA9, neither of
	// which has a dedicated piece in this vocabulary.
	ids, err := e.Encode("é")
	require.NoError(t, err)

	b1, ok := v.ByteToken(0xC3)
	require.True(t, ok)
	b2, ok := v.ByteToken(0xA9)
	require.True(t, ok)
	require.Equal(t, []vocab.TokenID{b1, b2}, ids)
}

func TestEncodeMultiCharUnknownRun(t *testing.T) {
	v := abVocab(t)
	e := New(v)

	ids, err := e.Encode("azb") // 'z' covered only by byte fallback
	require.NoError(t, err)

	aID, _ := v.IDOf("a")
	bID, _ := v.IDOf("b")
	zID, _ := v.ByteToken('z')
	require.Equal(t, []vocab.TokenID{aID, zID, bID}, ids)
}

func TestUserDefinedTokenBeatsByteFallback(t *testing.T) {
	v := plamoVocab(t,
		[]string{"<tag>"},
		[]float32{-100.0}, // a very low declared score
		[]vocab.TokenType{vocab.TokenUserDefined},
	)
	e := New(v)

	ids, err := e.Encode("<tag>")
	require.NoError(t, err)

	tagID, _ := v.IDOf("<tag>")
	// A UserDefined piece's effective score is always 0, trouncing the cost
	// of decomposing all five characters into byte-fallback tokens.
	require.Equal(t, []vocab.TokenID{tagID}, ids)
}

func TestDecodePiecesResolvesByteTokens(t *testing.T) {
	v := abVocab(t)
	e := New(v)

	ids, err := e.Encode("z")
	require.NoError(t, err)

	pieces, err := e.DecodePieces(ids)
	require.NoError(t, err)
	require.Equal(t, []string{"z"}, pieces)
}

func TestDecodePiecesAndDetokenizeRoundTrip(t *testing.T) {
	v := abVocab(t)
	e := New(v)

	ids, err := e.Encode("azb")
	require.NoError(t, err)

	pieces, err := e.DecodePieces(ids)
	require.NoError(t, err)

	text, err := e.Detokenize(pieces)
	require.NoError(t, err)
	require.Equal(t, "azb", text)
}
