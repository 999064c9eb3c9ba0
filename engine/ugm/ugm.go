// Package ugm implements the unigram-model engine: a byte-trie vocabulary
// index plus a full Viterbi dynamic program over byte offsets, rather than
// the greedy longest-match approximation some tokenizer libraries ship.
package ugm

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

const unknownScorePenalty = 10.0

// trieNode is one node of a dense 256-branching byte trie.
type trieNode struct {
	children   [256]*trieNode
	hasToken   bool
	token      vocab.TokenID
	userDefine bool
}

func newTrieNode() *trieNode { return &trieNode{} }

func (n *trieNode) insert(key []byte, id vocab.TokenID, userDefined bool) {
	cur := n
	for _, b := range key {
		if cur.children[b] == nil {
			cur.children[b] = newTrieNode()
		}
		cur = cur.children[b]
	}
	cur.hasToken = true
	cur.token = id
	cur.userDefine = userDefined
}

// Engine implements engine.Engine for the UGM algorithm.
type Engine struct {
	vocab        *vocab.Vocabulary
	root         *trieNode
	unknownScore float32
}

// New builds a UGM engine over v: the main trie over Normal/UserDefined/Unused
// tokens and the min-score-derived unknown-token penalty.
func New(v *vocab.Vocabulary) *Engine {
	e := &Engine{vocab: v, root: newTrieNode()}

	minScore := float32(math.Inf(1))
	for id := 0; id < v.Size(); id++ {
		tid := vocab.TokenID(id)
		switch v.Type(tid) {
		case vocab.TokenNormal, vocab.TokenUserDefined, vocab.TokenUnused:
			piece, _ := v.Piece(tid)
			e.root.insert([]byte(piece), tid, v.Type(tid) == vocab.TokenUserDefined)
			if v.Type(tid) == vocab.TokenNormal {
				if s := v.Score(tid); s < minScore {
					minScore = s
				}
			}
		}
	}
	if math.IsInf(float64(minScore), 1) {
		minScore = 0
	}
	e.unknownScore = minScore - unknownScorePenalty
	return e
}

type dpState struct {
	tokenID  vocab.TokenID
	startPos int
	score    float32
	valid    bool
}

// Encode implements engine.Engine.
func (e *Engine) Encode(text string) ([]vocab.TokenID, error) {
	if text == "" {
		return nil, nil
	}
	normalized := e.normalize(text)
	n := len(normalized)

	best := make([]dpState, n+1)
	for i := 1; i <= n; i++ {
		best[i].score = float32(math.Inf(-1))
	}
	unk, hasUnk := e.vocab.Unknown()
	if !hasUnk {
		unk = 0
	}
	best[0] = dpState{tokenID: unk, startPos: 0, score: 0, valid: true}

	for i := 0; i < n; {
		_, cpLen := utf8.DecodeRuneInString(normalized[i:])

		coveredExact := false
		e.walk(normalized, i, func(j int, node *trieNode) {
			s := e.vocab.Score(node.token)
			if node.userDefine {
				s = 0.0
			}
			candidate := best[i].score + s
			if candidate > best[j].score {
				best[j] = dpState{tokenID: node.token, startPos: i, score: candidate, valid: true}
			}
			if j == i+cpLen {
				coveredExact = true
			}
		})

		if !coveredExact && i+cpLen <= n {
			candidate := best[i].score + e.unknownScore
			if candidate > best[i+cpLen].score {
				best[i+cpLen] = dpState{tokenID: unk, startPos: i, score: candidate, valid: true}
			}
		}

		i += cpLen
	}

	if !best[n].valid {
		return nil, errs.TokenizationFailedf("ugm: no viable tokenization path covers input")
	}

	var reversed []vocab.TokenID
	for pos := n; pos > 0; {
		state := best[pos]
		reversed = append(reversed, state.tokenID)
		pos = state.startPos
	}
	ids := make([]vocab.TokenID, len(reversed))
	for i, id := range reversed {
		ids[len(reversed)-1-i] = id
	}
	return ids, nil
}

// walk descends the main trie from byte offset start in text, invoking fn at
// every terminal node reached, with the byte offset just past it.
func (e *Engine) walk(text string, start int, fn func(end int, node *trieNode)) {
	node := e.root
	for i := start; i < len(text); i++ {
		node = node.children[text[i]]
		if node == nil {
			return
		}
		if node.hasToken {
			fn(i+1, node)
		}
	}
}

// normalize applies the vocabulary's precompiled character map, if present.
// No parser for that blob's format exists yet (see DESIGN.md), so this is
// currently always the identity transform regardless of whether one is set.
func (e *Engine) normalize(text string) string {
	return text
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

// Detokenize implements engine.Engine: concatenates pieces and maps U+2581
// back to a space.
func (e *Engine) Detokenize(pieces []string) (string, error) {
	joined := strings.Join(pieces, "")
	joined = strings.ReplaceAll(joined, "▁", " ")
	if !utf8.ValidString(joined) {
		return "", errs.InvalidUTF8f("ugm: decoded output is not valid utf-8")
	}
	return joined, nil
}
