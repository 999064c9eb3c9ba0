package rwkv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

func rwkvVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	rec := &vocab.MetadataRecord{
		Model:        "rwkv",
		Tokens:       []string{"<unk>", "h", "hello", `\n`, `\x41`},
		TokenTypes:   []vocab.TokenType{vocab.TokenUnknown, vocab.TokenNormal, vocab.TokenNormal, vocab.TokenNormal, vocab.TokenNormal},
		HasUnknownID: true,
		UnknownID:    0,
	}
	v, err := vocab.New(rec)
	require.NoError(t, err)
	return v
}

func TestNewDetectsUnescapeCollision(t *testing.T) {
	rec := &vocab.MetadataRecord{
		Model:      "rwkv",
		Tokens:     []string{"A", `\x41`}, // both unescape to the byte 0x41
		TokenTypes: []vocab.TokenType{vocab.TokenNormal, vocab.TokenNormal},
	}
	v, err := vocab.New(rec)
	require.NoError(t, err)

	_, err = New(v)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrInvalidMetadata)
}

func TestUnescapeSequences(t *testing.T) {
	require.Equal(t, []byte("\n"), unescape(`\n`))
	require.Equal(t, []byte("\t"), unescape(`\t`))
	require.Equal(t, []byte("\r"), unescape(`\r`))
	require.Equal(t, []byte{0x41}, unescape(`\x41`))
	require.Equal(t, []byte("c"), unescape(`\c`))
	require.Equal(t, []byte("plain"), unescape("plain"))
}

func TestEncodeGreedyLongestMatch(t *testing.T) {
	v := rwkvVocab(t)
	e, err := New(v)
	require.NoError(t, err)

	ids, err := e.Encode("hello")
	require.NoError(t, err)

	wantID, ok := v.IDOf("hello")
	require.True(t, ok)
	require.Equal(t, []vocab.TokenID{wantID}, ids)
}

func TestEncodeEmptyText(t *testing.T) {
	v := rwkvVocab(t)
	e, err := New(v)
	require.NoError(t, err)

	ids, err := e.Encode("")
	require.NoError(t, err)
	require.Nil(t, ids)
}

func TestEncodeFallsBackToUnknownOnMiss(t *testing.T) {
	v := rwkvVocab(t)
	e, err := New(v)
	require.NoError(t, err)

	ids, err := e.Encode("z")
	require.NoError(t, err)
	require.Equal(t, []vocab.TokenID{0}, ids)
}

func TestEncodeMatchesEscapedToken(t *testing.T) {
	v := rwkvVocab(t)
	e, err := New(v)
	require.NoError(t, err)

	// Token `\n` unescapes to a single newline byte; the raw input has one.
	ids, err := e.Encode("\n")
	require.NoError(t, err)

	wantID, _ := v.IDOf(`\n`)
	require.Equal(t, []vocab.TokenID{wantID}, ids)
}

func TestEncodeWithNoFallbackFails(t *testing.T) {
	rec := &vocab.MetadataRecord{
		Model:      "rwkv",
		Tokens:     []string{"h"},
		TokenTypes: []vocab.TokenType{vocab.TokenNormal},
	}
	v, err := vocab.New(rec)
	require.NoError(t, err)
	e, err := New(v)
	require.NoError(t, err)

	_, err = e.Encode("z")
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrTokenizationFailed)
}

func TestDecodePiecesAndDetokenizeRoundTrip(t *testing.T) {
	v := rwkvVocab(t)
	e, err := New(v)
	require.NoError(t, err)

	ids, err := e.Encode("hello")
	require.NoError(t, err)

	pieces, err := e.DecodePieces(ids)
	require.NoError(t, err)

	text, err := e.Detokenize(pieces)
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}

func TestDetokenizeUnescapesPieces(t *testing.T) {
	v := rwkvVocab(t)
	e, err := New(v)
	require.NoError(t, err)

	text, err := e.Detokenize([]string{`\x41`, `\n`})
	require.NoError(t, err)
	require.Equal(t, "A\n", text)
}
