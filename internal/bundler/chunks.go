package bundler

import (
	"errors"
	"log/slog"
	"slices"
	"sort"
)

// ErrChunkCycle is returned by TopoSortChunks when chunk parents form a cycle.
var ErrChunkCycle = errors.New("cyclic chunk dependency")

// TopoSortChunks orders chunks so every chunk follows its parents. Chunks
// with no ordering constraint keep their input order.
func TopoSortChunks(chunks []Chunk) ([]Chunk, error) {
	index := make(map[string]int, len(chunks))
	for i, c := range chunks {
		index[c.ID] = i
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(chunks))
	out := make([]Chunk, 0, len(chunks))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case visited:
			return nil
		case visiting:
			return ErrChunkCycle
		}
		state[i] = visiting
		for _, parent := range chunks[i].Parents {
			if j, ok := index[parent]; ok {
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		state[i] = visited
		out = append(out, chunks[i])
		return nil
	}

	for i := range chunks {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortChunks orders chunks by dependency. When the dependency graph has a
// cycle it logs a warning and falls back to loading shared chunks first and
// entry chunks, with "app" last, at the end.
func SortChunks(chunks []Chunk, logger *slog.Logger) []Chunk {
	sorted, err := TopoSortChunks(chunks)
	if err == nil {
		return sorted
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("Chunk dependency sort failed; using fallback order", "error", err, "chunks", len(chunks))

	fallback := slices.Clone(chunks)
	sort.SliceStable(fallback, func(i, j int) bool {
		return fallbackRank(fallback[i]) < fallbackRank(fallback[j])
	})
	return fallback
}

func fallbackRank(c Chunk) int {
	switch {
	case slices.Contains(c.Names, "app"):
		return 2
	case c.Entry:
		return 1
	default:
		return 0
	}
}
