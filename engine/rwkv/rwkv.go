// Package rwkv implements the RWKV tokenizer: escape-decoded vocabulary
// strings indexed in a byte trie, matched by greedy longest match.
package rwkv

import (
	"strings"
	"unicode/utf8"

	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

// trieNode is one node of a dense 256-branching byte trie.
type trieNode struct {
	children [256]*trieNode
	hasToken bool
	token    vocab.TokenID
}

func newTrieNode() *trieNode { return &trieNode{} }

// Engine implements engine.Engine for RWKV.
type Engine struct {
	vocab *vocab.Vocabulary
	root  *trieNode
}

// New builds an RWKV engine over v, unescaping every token's text into raw
// bytes and inserting it into a byte trie. Colliding unescaped byte sequences
// are a construction error.
func New(v *vocab.Vocabulary) (*Engine, error) {
	e := &Engine{vocab: v, root: newTrieNode()}

	for id := 0; id < v.Size(); id++ {
		tid := vocab.TokenID(id)
		piece, err := v.Piece(tid)
		if err != nil {
			return nil, err
		}
		raw := unescape(piece)

		node := e.root
		for _, b := range raw {
			if node.children[b] == nil {
				node.children[b] = newTrieNode()
			}
			node = node.children[b]
		}
		if node.hasToken {
			return nil, errs.InvalidMetadataf("rwkv: tokens %d and %d both unescape to the same byte sequence %q", node.token, tid, raw)
		}
		node.hasToken = true
		node.token = tid
	}
	return e, nil
}

// unescape interprets \n, \t, \r, \xNN (two hex digits), and a literal
// escape \c -> c, leaving all other bytes untouched.
func unescape(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			out = append(out, s[i])
			i++
			continue
		}
		switch s[i+1] {
		case 'n':
			out = append(out, '\n')
			i += 2
		case 't':
			out = append(out, '\t')
			i += 2
		case 'r':
			out = append(out, '\r')
			i += 2
		case 'x':
			if i+3 < len(s) {
				if hi, ok1 := hexDigit(s[i+2]); ok1 {
					if lo, ok2 := hexDigit(s[i+3]); ok2 {
						out = append(out, hi<<4|lo)
						i += 4
						continue
					}
				}
			}
			out = append(out, s[i+1])
			i += 2
		default:
			out = append(out, s[i+1])
			i += 2
		}
	}
	return out
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// Encode implements engine.Engine.
func (e *Engine) Encode(text string) ([]vocab.TokenID, error) {
	if text == "" {
		return nil, nil
	}
	raw := []byte(text)

	var ids []vocab.TokenID
	pos := 0
	for pos < len(raw) {
		node := e.root
		lastTerminal := -1
		lastLen := 0
		for i := pos; i < len(raw); i++ {
			node = node.children[raw[i]]
			if node == nil {
				break
			}
			if node.hasToken {
				lastTerminal = int(node.token)
				lastLen = i - pos + 1
			}
		}
		if lastTerminal < 0 {
			unk, ok := e.vocab.Unknown()
			if !ok {
				return nil, errs.TokenizationFailedf("rwkv: byte 0x%02X has no trie match and no unknown token is defined", raw[pos])
			}
			ids = append(ids, unk)
			pos++
			continue
		}
		ids = append(ids, vocab.TokenID(lastTerminal))
		pos += lastLen
	}
	return ids, nil
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

// Detokenize implements engine.Engine: unescapes each piece back to its raw
// bytes and concatenates them.
func (e *Engine) Detokenize(pieces []string) (string, error) {
	var sb strings.Builder
	for _, p := range pieces {
		sb.Write(unescape(p))
	}
	raw := sb.String()
	if !utf8.ValidString(raw) {
		return "", errs.InvalidUTF8f("rwkv: decoded output is not valid utf-8")
	}
	return raw, nil
}
