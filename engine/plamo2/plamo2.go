// Package plamo2 implements the PLaMo-2 tokenizer: a reverse Viterbi dynamic
// program driven by an Aho-Corasick-style suffix automaton over vocabulary
// pieces, with byte-fallback expansion through the 256 mandatory <0xNN>
// tokens for any code point no piece covers.
package plamo2

import (
	"math"
	"unicode/utf8"

	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

// invalidScore marks a trie node reached only as a structural prefix of a
// longer piece, never itself a complete token. The construction here never
// materializes such a row explicitly (see buildRows), but the constant is
// kept to document the boundary the reverse DP's score filter is checking.
const invalidScore = int64(-2e7)

// unknownScore is the score charged for the single-code-point byte-fallback
// candidate that is always available at every position.
const unknownScore = int64(-1e7)

// bigCost stands in for the reverse DP's "+Inf" sentinel; it is far larger
// than any reachable accumulated cost but still safe to subtract from.
const bigCost = int64(1) << 40

// row is one candidate in a trie node's suffix table: either a real token
// (isWord) of a given code-point length, or the trailing sentinel.
type row struct {
	pieceLen int
	tokenID  vocab.TokenID
	score    int64
	isWord   bool
}

// trieNode is a node of the suffix automaton, keyed by code point along
// edges that spell out vocabulary pieces in reverse.
type trieNode struct {
	children map[rune]*trieNode
	fail     *trieNode
	output   *trieNode // nearest strict ancestor, via fail links, that is itself a complete piece
	depth    int
	isWord   bool
	tokenID  vocab.TokenID
	score    int64
	rows     []row
}

func newTrieNode(depth int) *trieNode {
	return &trieNode{children: make(map[rune]*trieNode), depth: depth}
}

// Engine implements engine.Engine for PLaMo-2.
type Engine struct {
	vocab *vocab.Vocabulary
	root  *trieNode
}

// New builds a PLaMo-2 engine over v. It indexes every Normal/UserDefined/
// Unused token by the code points of its text, reversed, then compiles
// Aho-Corasick fail and output links so the reverse scan can step through
// the input one code point at a time.
func New(v *vocab.Vocabulary) *Engine {
	e := &Engine{vocab: v, root: newTrieNode(0)}

	for id := 0; id < v.Size(); id++ {
		tid := vocab.TokenID(id)
		switch v.Type(tid) {
		case vocab.TokenNormal, vocab.TokenUserDefined, vocab.TokenUnused:
			piece, _ := v.Piece(tid)
			runes := []rune(piece)
			if len(runes) == 0 {
				continue
			}
			score := int64(math.Round(float64(v.Score(tid)) * 1e4))
			if v.Type(tid) == vocab.TokenUserDefined {
				score = 0
			}
			e.insertReversed(runes, tid, score)
		}
	}
	e.buildLinks()
	e.buildRows()
	return e
}

func (e *Engine) insertReversed(runes []rune, id vocab.TokenID, score int64) {
	node := e.root
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		child, ok := node.children[r]
		if !ok {
			child = newTrieNode(node.depth + 1)
			node.children[r] = child
		}
		node = child
	}
	node.isWord = true
	node.tokenID = id
	node.score = score
}

// step is the automaton's goto function: follow fail links until a child
// for r is found, falling back to the root (the sentinel state) if none is.
func (e *Engine) step(node *trieNode, r rune) *trieNode {
	for {
		if child, ok := node.children[r]; ok {
			return child
		}
		if node == e.root {
			return e.root
		}
		node = node.fail
	}
}

// buildLinks computes Aho-Corasick fail links (breadth-first, by depth) and
// each node's output link: the nearest ancestor, via fail, that is itself a
// complete piece.
func (e *Engine) buildLinks() {
	e.root.fail = e.root
	queue := make([]*trieNode, 0, len(e.root.children))
	for _, child := range e.root.children {
		child.fail = e.root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if node.fail.isWord {
			node.output = node.fail
		} else {
			node.output = node.fail.output
		}
		for r, child := range node.children {
			child.fail = e.step(node.fail, r)
			queue = append(queue, child)
		}
	}
}

// buildRows flattens each node's output chain into its suffix-table row
// list, longest piece first, with the unknown sentinel trailing.
func (e *Engine) buildRows() {
	queue := []*trieNode{e.root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		start := node
		if !node.isWord {
			start = node.output
		}
		var rows []row
		for cur := start; cur != nil; cur = cur.output {
			rows = append(rows, row{pieceLen: cur.depth, tokenID: cur.tokenID, score: cur.score, isWord: true})
		}
		rows = append(rows, row{score: unknownScore})
		node.rows = rows

		for _, child := range node.children {
			queue = append(queue, child)
		}
	}
}

// pathEntry is one reverse-DP backpointer: how many code points the chosen
// candidate at this position spans, and either its token id or a signal to
// fall back to raw UTF-8 bytes.
type pathEntry struct {
	tokenLen int
	tokenID  vocab.TokenID
	isByte   bool
}

// Encode implements engine.Engine.
func (e *Engine) Encode(text string) ([]vocab.TokenID, error) {
	if text == "" {
		return nil, nil
	}
	cps := []rune(text)
	n := len(cps)

	scores := make([]int64, n+1)
	path := make([]pathEntry, n+1)
	for i := 0; i < n; i++ {
		scores[i] = bigCost
	}
	scores[n] = 0

	state := e.root
	for i := n - 1; i >= 0; i-- {
		state = e.step(state, cps[i])

		for _, r := range state.rows {
			if !r.isWord {
				cost := scores[i+1] - r.score
				if cost < scores[i] {
					scores[i] = cost
					path[i] = pathEntry{tokenLen: 1, isByte: true}
				}
				break
			}
			if r.score <= invalidScore {
				continue
			}
			L := r.pieceLen
			if i+L > n {
				continue
			}
			cost := scores[i+L] - r.score
			if cost < scores[i] {
				scores[i] = cost
				path[i] = pathEntry{tokenLen: L, tokenID: r.tokenID}
			}
		}
	}

	if scores[0] >= bigCost {
		return nil, errs.TokenizationFailedf("plamo2: no viable tokenization path covers input")
	}

	var ids []vocab.TokenID
	for i := 0; i < n; {
		pe := path[i]
		if pe.isByte {
			for _, b := range []byte(string(cps[i])) {
				id, ok := e.vocab.ByteToken(b)
				if !ok {
					return nil, errs.TokenizationFailedf("plamo2: missing byte token for 0x%02X", b)
				}
				ids = append(ids, id)
			}
		} else {
			ids = append(ids, pe.tokenID)
		}
		i += pe.tokenLen
	}
	return ids, nil
}

// DecodePieces implements engine.Engine.
func (e *Engine) DecodePieces(ids []vocab.TokenID) ([]string, error) {
	pieces := make([]string, len(ids))
	for i, id := range ids {
		if b, ok := e.vocab.IsByteToken(id); ok {
			pieces[i] = string([]byte{b})
			continue
		}
		p, err := e.vocab.Piece(id)
		if err != nil {
			return nil, err
		}
		pieces[i] = p
	}
	return pieces, nil
}

// Detokenize implements engine.Engine: concatenates pieces, which are
// already raw text (byte-fallback pieces were already resolved to their
// literal byte by DecodePieces).
func (e *Engine) Detokenize(pieces []string) (string, error) {
	var out []byte
	for _, p := range pieces {
		out = append(out, p...)
	}
	if !utf8.Valid(out) {
		return "", errs.InvalidUTF8f("plamo2: decoded output is not valid utf-8")
	}
	return string(out), nil
}
