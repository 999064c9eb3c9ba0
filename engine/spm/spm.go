// Package spm implements the SentencePiece-style unigram engine: priority-
// queue pair merging over a doubly-linked symbol list, followed by a
// re-segmentation post-pass against the vocabulary.
package spm

import (
	"container/heap"
	"strings"
	"unicode/utf8"

	"github.com/gguftok/gguftok/engine"
	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/vocab"
)

const phantomSpace = "▁"

// Engine implements engine.Engine for the SPM algorithm.
type Engine struct {
	vocab *vocab.Vocabulary
}

// New builds an SPM engine over v. SPM needs no precomputed structure beyond
// the vocabulary's own id/score maps.
func New(v *vocab.Vocabulary) *Engine {
	return &Engine{vocab: v}
}

// symbol is one node of the doubly-linked list the merge loop operates on.
type symbol struct {
	piece      string
	prev, next int // index into the symbols slice, or -1
	alive      bool
}

// pairItem is one candidate merge in the priority queue.
type pairItem struct {
	left, right int // symbol indices at the time of enqueue
	score       float32
	pos         int // left symbol's original position, for tie-break
	index       int // heap bookkeeping
}

type pairHeap []*pairItem

func (h pairHeap) Len() int { return len(h) }
func (h pairHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score // max-heap on score
	}
	return h[i].pos < h[j].pos
}
func (h pairHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *pairHeap) Push(x any) {
	item := x.(*pairItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *pairHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Encode implements engine.Engine.
func (e *Engine) Encode(text string) ([]vocab.TokenID, error) {
	if text == "" {
		return nil, nil
	}

	transformed := text
	if e.vocab.AddSpacePrefix() && !strings.HasPrefix(transformed, phantomSpace) {
		transformed = phantomSpace + transformed
	}
	transformed = strings.ReplaceAll(transformed, " ", phantomSpace)

	// The phantom-space substitution can grow the text (▁ is 3 UTF-8 bytes
	// replacing a 1-byte space), so re-check the limit the facade already
	// applied to the untransformed input.
	if len(transformed) > engine.MaxInputBytes {
		return nil, errs.TokenizationFailedf("spm: transformed text of %d bytes exceeds the %d byte limit", len(transformed), engine.MaxInputBytes)
	}

	symbols, positions := splitSymbols(transformed)
	mergeHistory := make(map[string][2]string)

	pq := &pairHeap{}
	heap.Init(pq)
	enqueueIfMergeable := func(i int) {
		if i < 0 || symbols[i].next < 0 {
			return
		}
		j := symbols[i].next
		piece := symbols[i].piece + symbols[j].piece
		if _, ok := e.vocab.IDOf(piece); ok {
			heap.Push(pq, &pairItem{left: i, right: j, score: e.vocab.Score(idOf(e.vocab, piece)), pos: positions[i]})
		}
	}
	for i := range symbols {
		enqueueIfMergeable(i)
	}

	maxIterations := 100000
	if n := len(symbols) * 10; n > maxIterations {
		maxIterations = n
	}

	for iter := 0; pq.Len() > 0 && iter < maxIterations; iter++ {
		item := heap.Pop(pq).(*pairItem)
		l, r := item.left, item.right
		if !symbols[l].alive || !symbols[r].alive || symbols[l].next != r {
			continue // stale: an endpoint was consumed by an earlier merge
		}
		merged := symbols[l].piece + symbols[r].piece
		mergeHistory[merged] = [2]string{symbols[l].piece, symbols[r].piece}

		symbols[l].piece = merged
		symbols[r].alive = false
		symbols[l].next = symbols[r].next
		if symbols[r].next >= 0 {
			symbols[symbols[r].next].prev = l
		}

		enqueueIfMergeable(symbols[l].prev)
		enqueueIfMergeable(l)
	}

	var ids []vocab.TokenID
	for i := range symbols {
		if !symbols[i].alive {
			continue
		}
		resegmented, err := resegment(e.vocab, symbols[i].piece, mergeHistory, 0)
		if err != nil {
			return nil, err
		}
		ids = append(ids, resegmented...)
	}
	return ids, nil
}

func idOf(v *vocab.Vocabulary, piece string) vocab.TokenID {
	id, _ := v.IDOf(piece)
	return id
}

const maxResegmentDepth = 1000

// resegment resolves piece to a sequence of token IDs: directly if it's a
// vocabulary token, otherwise by recursively splitting it back along the
// merge that produced it, falling back to byte tokens for any fragment that
// still has no vocabulary entry.
func resegment(v *vocab.Vocabulary, piece string, history map[string][2]string, depth int) ([]vocab.TokenID, error) {
	if id, ok := v.IDOf(piece); ok {
		return []vocab.TokenID{id}, nil
	}
	if depth >= maxResegmentDepth {
		return nil, errs.TokenizationFailedf("spm: re-segmentation recursion exceeded %d for piece %q", maxResegmentDepth, piece)
	}
	if parts, ok := history[piece]; ok {
		left, err := resegment(v, parts[0], history, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := resegment(v, parts[1], history, depth+1)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	}
	return fallbackToBytes(v, piece)
}

func fallbackToBytes(v *vocab.Vocabulary, piece string) ([]vocab.TokenID, error) {
	var ids []vocab.TokenID
	for _, b := range []byte(piece) {
		if id, ok := v.ByteToken(b); ok {
			ids = append(ids, id)
			continue
		}
		if unk, ok := v.Unknown(); ok {
			ids = append(ids, unk)
			continue
		}
		return nil, errs.TokenizationFailedf("spm: byte 0x%02X has no byte token and no unknown token is defined", b)
	}
	return ids, nil
}

// splitSymbols builds the initial doubly-linked symbol list, one node per
// code point, plus each symbol's 0-based position for merge tie-breaking.
func splitSymbols(s string) ([]symbol, []int) {
	n := utf8.RuneCountInString(s)
	symbols := make([]symbol, 0, n)
	positions := make([]int, 0, n)
	pos := 0
	for _, r := range s {
		symbols = append(symbols, symbol{piece: string(r), prev: len(symbols) - 1, next: len(symbols) + 1, alive: true})
		positions = append(positions, pos)
		pos++
	}
	if len(symbols) > 0 {
		symbols[len(symbols)-1].next = -1
	}
	return symbols, positions
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

// Detokenize implements engine.Engine: concatenates pieces and maps the
// phantom-space marker back to an ASCII space.
func (e *Engine) Detokenize(pieces []string) (string, error) {
	joined := strings.Join(pieces, "")
	joined = strings.ReplaceAll(joined, phantomSpace, " ")
	if !utf8.ValidString(joined) {
		return "", errs.InvalidUTF8f("spm: decoded output is not valid utf-8")
	}
	return joined, nil
}
