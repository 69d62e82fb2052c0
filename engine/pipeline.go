package engine

import (
	"fmt"
	"slices"
)

// Pipeline is an ordered sequence of distinct stage keys. Every mutation
// returns a new Pipeline built from the full reordered list, so positions
// are always 0..N-1.
type Pipeline[K comparable] struct {
	items []K
}

// NewPipeline creates a pipeline in the given order.
func NewPipeline[K comparable](items ...K) (*Pipeline[K], error) {
	seen := make(map[K]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateStage, it)
		}
		seen[it] = true
	}
	return &Pipeline[K]{items: slices.Clone(items)}, nil
}

// Len returns the number of stages.
func (p *Pipeline[K]) Len() int {
	return len(p.items)
}

// Items returns the stages in order.
func (p *Pipeline[K]) Items() []K {
	return slices.Clone(p.items)
}

// Index returns the position of key, or -1.
func (p *Pipeline[K]) Index(key K) int {
	return slices.Index(p.items, key)
}

// Positions maps every key to its position.
func (p *Pipeline[K]) Positions() map[K]int {
	out := make(map[K]int, len(p.items))
	for i, it := range p.items {
		out[it] = i
	}
	return out
}

// Insert places key at index, clamped to [0, Len].
func (p *Pipeline[K]) Insert(key K, at int) (*Pipeline[K], error) {
	if p.Index(key) >= 0 {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateStage, key)
	}
	at = clamp(at, 0, len(p.items))

	items := make([]K, 0, len(p.items)+1)
	items = append(items, p.items[:at]...)
	items = append(items, key)
	items = append(items, p.items[at:]...)
	return &Pipeline[K]{items: items}, nil
}

// Append places key at the end.
func (p *Pipeline[K]) Append(key K) (*Pipeline[K], error) {
	return p.Insert(key, len(p.items))
}

// Remove drops key and closes the gap.
func (p *Pipeline[K]) Remove(key K) (*Pipeline[K], error) {
	i := p.Index(key)
	if i < 0 {
		return nil, fmt.Errorf("%w: %v", ErrStageNotFound, key)
	}

	items := make([]K, 0, len(p.items)-1)
	items = append(items, p.items[:i]...)
	items = append(items, p.items[i+1:]...)
	return &Pipeline[K]{items: items}, nil
}

// Reorder moves key to index, clamped to [0, Len-1].
func (p *Pipeline[K]) Reorder(key K, to int) (*Pipeline[K], error) {
	without, err := p.Remove(key)
	if err != nil {
		return nil, err
	}
	return without.Insert(key, clamp(to, 0, without.Len()))
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
