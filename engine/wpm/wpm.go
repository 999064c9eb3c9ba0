// Package wpm implements WordPiece-style greedy longest-match tokenization
// with a phantom leading-space prefix, the BERT-family algorithm.
package wpm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"

	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

const phantomSpace = "▁"

// Engine implements engine.Engine for WordPiece.
type Engine struct {
	vocab *vocab.Vocabulary
}

// New builds a WPM engine over v.
func New(v *vocab.Vocabulary) *Engine {
	return &Engine{vocab: v}
}

// Encode implements engine.Engine.
func (e *Engine) Encode(text string) ([]vocab.TokenID, error) {
	if text == "" {
		return nil, nil
	}

	normalized := norm.NFD.String(text)
	lowered := strings.ToLower(normalized)

	var ids []vocab.TokenID
	for _, word := range splitWords(lowered) {
		wordIDs, err := e.matchWord(word)
		if err != nil {
			return nil, err
		}
		ids = append(ids, wordIDs...)
	}
	return ids, nil
}

// splitWords runs Unicode default word-boundary segmentation, then further
// splits each non-whitespace segment so that every ASCII-punctuation code
// point is its own word, dropping empty/whitespace-only segments.
func splitWords(text string) []string {
	var out []string
	seg := words.NewSegmenter([]byte(text))
	for seg.Next() {
		segment := string(seg.Value())
		if strings.TrimSpace(segment) == "" {
			continue
		}
		out = append(out, splitASCIIPunctuation(segment)...)
	}
	return out
}

func splitASCIIPunctuation(s string) []string {
	var out []string
	var current strings.Builder
	for _, r := range s {
		if isPunctuation(r) {
			if current.Len() > 0 {
				out = append(out, current.String())
				current.Reset()
			}
			out = append(out, string(r))
		} else {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// matchWord greedily matches the longest known prefix of "▁"+word,
// discarding all partial emissions and falling back to the unknown token if
// any position has no match.
func (e *Engine) matchWord(word string) ([]vocab.TokenID, error) {
	prefixed := phantomSpace + word
	maxLen := e.vocab.MaxTokenLength()

	var ids []vocab.TokenID
	i := 0
	for i < len(prefixed) {
		matched := false
		limit := len(prefixed) - i
		if maxLen > 0 && maxLen < limit {
			limit = maxLen
		}
		for length := limit; length > 0; length-- {
			candidate := prefixed[i : i+length]
			if !utf8.ValidString(candidate) {
				continue // never offer a byte-split-mid-rune candidate
			}
			if id, ok := e.vocab.IDOf(candidate); ok {
				ids = append(ids, id)
				i += length
				matched = true
				break
			}
		}
		if !matched {
			return e.unknownFallback(word)
		}
	}
	return ids, nil
}

func (e *Engine) unknownFallback(word string) ([]vocab.TokenID, error) {
	if unk, ok := e.vocab.Unknown(); ok {
		return []vocab.TokenID{unk}, nil
	}
	return nil, errs.TokenizationFailedf("wpm: no match for word %q and no unknown token is defined", word)
}

// DecodePieces implements engine.Engine.
func (e *Engine) DecodePieces(ids []vocab.TokenID) ([]string, error) {
	pieces := make([]string, len(ids))
	for i, id := range ids {
		p, err := e.vocab.Piece(id)
		if err != nil {
			return nil, err
		}
		pieces[i] = p
	}
	return pieces, nil
}

// Detokenize implements engine.Engine: concatenates pieces, maps the phantom
// space marker back to an ASCII space, and drops a leading space.
func (e *Engine) Detokenize(pieces []string) (string, error) {
	joined := strings.Join(pieces, "")
	joined = strings.ReplaceAll(joined, phantomSpace, " ")
	joined = strings.TrimPrefix(joined, " ")
	if !utf8.ValidString(joined) {
		return "", errs.InvalidUTF8f("wpm: decoded output is not valid utf-8")
	}
	return joined, nil
}
