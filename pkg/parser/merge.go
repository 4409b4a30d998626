package parser

import (
	"container/heap"
	"context"
	"io"
)

// MergedSource combines multiple LogSources into a single stream ordered by
// entry timestamp (oldest first). Kubelet writes one file per container, so
// this gives a pod-wide timeline. Entries with equal timestamps keep the
// order of the sources passed to NewMergedSource.
type MergedSource struct {
	sources     []LogSource
	heap        *lineHeap
	initialized bool
}

// NewMergedSource creates a LogSource that merges multiple sources by timestamp.
func NewMergedSource(sources ...LogSource) *MergedSource {
	return &MergedSource{
		sources: sources,
		heap:    &lineHeap{},
	}
}

// Next returns the next line in timestamp order across all sources.
// Returns io.EOF when all sources are exhausted.
func (m *MergedSource) Next(ctx context.Context) (*ParsedLine, error) {
	if !m.initialized {
		if err := m.initHeap(ctx); err != nil {
			return nil, err
		}
		m.initialized = true
	}

	if m.heap.Len() == 0 {
		return nil, io.EOF
	}

	item := heap.Pop(m.heap).(*heapItem)

	// Refill from the same source
	next, err := m.sources[item.sourceIdx].Next(ctx)
	switch {
	case err == nil:
		heap.Push(m.heap, &heapItem{line: next, sourceIdx: item.sourceIdx})
	case err != io.EOF:
		return nil, err
	}

	return item.line, nil
}

func (m *MergedSource) initHeap(ctx context.Context) error {
	heap.Init(m.heap)

	for i, src := range m.sources {
		line, err := src.Next(ctx)
		if err == io.EOF {
			continue
		}
		if err != nil {
			return err
		}
		heap.Push(m.heap, &heapItem{line: line, sourceIdx: i})
	}

	return nil
}

// Close releases all source resources and returns the first error.
func (m *MergedSource) Close() error {
	var firstErr error
	for _, src := range m.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type heapItem struct {
	line      *ParsedLine
	sourceIdx int
}

// lineHeap implements heap.Interface ordered by (timestamp, source index).
type lineHeap []*heapItem

func (h lineHeap) Len() int { return len(h) }

func (h lineHeap) Less(i, j int) bool {
	ti, tj := h[i].line.Entry.Timestamp(), h[j].line.Entry.Timestamp()
	if ti.Equal(tj) {
		return h[i].sourceIdx < h[j].sourceIdx
	}
	return ti.Before(tj)
}

func (h lineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *lineHeap) Push(x any) {
	*h = append(*h, x.(*heapItem))
}

func (h *lineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
