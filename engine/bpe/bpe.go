// Package bpe implements byte-level BPE: GPT-2-style regex pre-tokenization
// followed by rank-ordered pair merging within each pre-token fragment.
package bpe

import (
	"container/heap"
	"strings"
	"unicode/utf8"

	"github.com/gguftok/gguftok/byteenc"
	"github.com/gguftok/gguftok/errs"
	"github.com/gguftok/gguftok/internal/cache"
	"github.com/gguftok/gguftok/pretok"
	"github.com/gguftok/gguftok/vocab"
)

// MaxOutputTokens bounds a single Encode call's result length.
const MaxOutputTokens = 1 << 20

// fragmentCacheSize bounds the number of distinct byte-encoded fragments
// whose merge result is memoized. Natural-language text re-sends the same
// common words (byte-encoded fragments) constantly, so this turns repeat
// merges into a map lookup instead of a fresh heap run.
const fragmentCacheSize = 4096

// Engine implements engine.Engine for byte-level BPE.
type Engine struct {
	vocab      *vocab.Vocabulary
	descriptor pretok.Descriptor
	cache      *cache.LRU[[]vocab.TokenID]
}

// New builds a BPE engine over v, resolving its pre-tokenizer Descriptor from
// the vocabulary's "pre" metadata kind.
func New(v *vocab.Vocabulary) *Engine {
	return &Engine{
		vocab:      v,
		descriptor: pretok.Resolve(v.Pre()),
		cache:      cache.New[[]vocab.TokenID](fragmentCacheSize),
	}
}

// symbol is one node of the doubly-linked merge list, one per byte-encoded
// rune at construction time.
type symbol struct {
	piece      string
	prev, next int
	alive      bool
}

type mergeItem struct {
	left, right int
	rank        int
	pos         int
	index       int
}

type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank // min-heap: lower rank merges first
	}
	return h[i].pos < h[j].pos
}
func (h mergeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *mergeHeap) Push(x any) {
	item := x.(*mergeItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *mergeHeap) Pop() any {
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

	var ids []vocab.TokenID
	for _, fragment := range pretok.Split(text, e.descriptor) {
		encoded := byteenc.Encode([]byte(fragment))

		if e.vocab.IgnoreMerges() {
			if id, ok := e.vocab.IDOf(encoded); ok {
				ids = append(ids, id)
				continue
			}
		}

		fragIDs, err := e.mergeFragmentCached(encoded)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fragIDs...)
		if len(ids) > MaxOutputTokens {
			return nil, errs.TokenizationFailedf("bpe: output exceeds %d tokens", MaxOutputTokens)
		}
	}
	return ids, nil
}

// mergeFragmentCached memoizes mergeFragment by its byte-encoded input, since
// the same fragment (a common word, say) recurs constantly across real text.
func (e *Engine) mergeFragmentCached(encoded string) ([]vocab.TokenID, error) {
	if ids, ok := e.cache.Get(encoded); ok {
		return ids, nil
	}
	ids, err := e.mergeFragment(encoded)
	if err != nil {
		return nil, err
	}
	e.cache.Put(encoded, ids)
	return ids, nil
}

func (e *Engine) mergeFragment(encoded string) ([]vocab.TokenID, error) {
	symbols, positions := splitRunes(encoded)

	pq := &mergeHeap{}
	heap.Init(pq)
	enqueue := func(i int) {
		if i < 0 || symbols[i].next < 0 {
			return
		}
		j := symbols[i].next
		if rank, ok := e.vocab.MergeRank(symbols[i].piece, symbols[j].piece); ok {
			heap.Push(pq, &mergeItem{left: i, right: j, rank: rank, pos: positions[i]})
		}
	}
	for i := range symbols {
		enqueue(i)
	}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*mergeItem)
		l, r := item.left, item.right
		if !symbols[l].alive || !symbols[r].alive || symbols[l].next != r {
			continue
		}
		rank, ok := e.vocab.MergeRank(symbols[l].piece, symbols[r].piece)
		if !ok || rank != item.rank {
			continue // stale: the rank this item was queued under no longer applies
		}

		symbols[l].piece += symbols[r].piece
		symbols[r].alive = false
		symbols[l].next = symbols[r].next
		if symbols[r].next >= 0 {
			symbols[symbols[r].next].prev = l
		}

		enqueue(symbols[l].prev)
		enqueue(l)
	}

	var ids []vocab.TokenID
	for i := range symbols {
		if !symbols[i].alive {
			continue
		}
		id, err := e.resolvePiece(symbols[i].piece)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id...)
	}
	return ids, nil
}

func (e *Engine) resolvePiece(piece string) ([]vocab.TokenID, error) {
	if id, ok := e.vocab.IDOf(piece); ok {
		return []vocab.TokenID{id}, nil
	}
	var ids []vocab.TokenID
	for _, r := range piece {
		if id, ok := e.vocab.IDOf(string(r)); ok {
			ids = append(ids, id)
			continue
		}
		if unk, ok := e.vocab.Unknown(); ok {
			ids = append(ids, unk)
			continue
		}
		return nil, errs.TokenizationFailedf("bpe: byte-encoded rune %q has no vocabulary entry and no unknown token is defined", r)
	}
	return ids, nil
}

func splitRunes(s string) ([]symbol, []int) {
	n := len([]rune(s))
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
		p, err := e.vocab.Piece(id)
		if err != nil {
			return nil, err
		}
		pieces[i] = p
	}
	return pieces, nil
}

// Detokenize implements engine.Engine: concatenates byte-encoded pieces and
// inverts the byte bijection to recover the original bytes.
func (e *Engine) Detokenize(pieces []string) (string, error) {
	raw := byteenc.Decode(strings.Join(pieces, ""))
	if !utf8.Valid(raw) {
		return "", errs.InvalidUTF8f("bpe: decoded output is not valid utf-8")
	}
	return string(raw), nil
}
