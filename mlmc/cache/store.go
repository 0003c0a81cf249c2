// Package cache persists previously computed (input, output) evaluation
// pairs across estimation runs.
//
// A store file holds named partitions, each an ordered list of per-level
// float64 arrays indexed by level number. Two partitions are written when a
// cache is created, cache_inputs and cache_outputs; a third,
// updated_outputs, is derived after deduplication and holds only the outputs
// whose inputs matched a later request.
//
// The in-memory view is read-through per operation: a Store loads the whole
// file on Open and writes the whole file back on mutation. It is not kept
// coherent with writers elsewhere — re-open after external writes.
// Concurrent readers of a file are fine; writers must serialize.
package cache

import (
	"errors"
	"fmt"
)

// Partition names inside a store file.
const (
	PartitionInputs         = "cache_inputs"
	PartitionOutputs        = "cache_outputs"
	PartitionUpdatedOutputs = "updated_outputs"
)

// Storage-layer errors, deliberately distinct from the numeric taxonomy of
// the estimation core: callers decide whether a miss is fatal or simply
// means "nothing to reuse, proceed fresh".
var (
	ErrClosed           = errors.New("cache: store is closed")
	ErrPartitionMissing = errors.New("cache: partition missing")
	ErrLevelMissing     = errors.New("cache: level missing")
	ErrCorrupt          = errors.New("cache: corrupt store file")
)

// Store is a handle to one cache file. It has two states: Closed (no data
// loaded) and Open (file decoded, read/write operations enabled). All
// mutation is written through to the backing file before returning.
type Store struct {
	path       string
	partitions map[string][][]float64
	open       bool
}

// Write creates (or overwrites) a cache file at path from parallel per-level
// input and output arrays. Level counts of the two partitions must match.
func Write(path string, inputs, outputs [][]float64) error {
	if len(inputs) != len(outputs) {
		return fmt.Errorf("%w: %d input levels vs %d output levels", ErrCorrupt, len(inputs), len(outputs))
	}
	partitions := map[string][][]float64{
		PartitionInputs:  inputs,
		PartitionOutputs: outputs,
	}
	return encodeFile(path, partitions)
}

// Open loads the cache file at path and returns an open Store.
func Open(path string) (*Store, error) {
	partitions, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, partitions: partitions, open: true}, nil
}

// Close releases the store. Further operations fail with ErrClosed.
// Closing twice is harmless.
func (s *Store) Close() error {
	s.open = false
	s.partitions = nil
	return nil
}

// With opens the store at path, runs fn, and guarantees release even when fn
// fails. Use it to scope every operation sequence against a store.
func With(path string, fn func(*Store) error) error {
	s, err := Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// Read returns the raw per-level array of a partition.
func (s *Store) Read(partition string, level int) ([]float64, error) {
	levels, err := s.partition(partition)
	if err != nil {
		return nil, err
	}
	if level < 0 || level >= len(levels) {
		return nil, fmt.Errorf("%w: partition %s has %d levels, level %d requested",
			ErrLevelMissing, partition, len(levels), level)
	}
	return levels[level], nil
}

// Levels returns how many levels a partition holds.
func (s *Store) Levels(partition string) (int, error) {
	levels, err := s.partition(partition)
	if err != nil {
		return 0, err
	}
	return len(levels), nil
}

func (s *Store) partition(name string) ([][]float64, error) {
	if !s.open {
		return nil, ErrClosed
	}
	levels, ok := s.partitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartitionMissing, name)
	}
	return levels, nil
}

// LevelMatches records, for one level, which cached entries matched a
// request: CacheIndices are positions in the cached partition, and
// StreamIndices the positions of the same values inside the level's chunk of
// the request stream. The two slices are parallel, ordered by cache position.
type LevelMatches struct {
	CacheIndices  []int
	StreamIndices []int
}

// CompareInputs deduplicates a requested input stream against the cached
// inputs. The flat stream is split into consecutive chunks of exactly
// sampleSizes[l] values per level; within each chunk, values equal (bitwise,
// no tolerance) to a cached input of the same level are stripped.
//
// It returns the flat concatenation of the inputs still requiring
// evaluation in stream order, the per-level count of reused samples, and the
// match positions needed by NarrowOutputs. Each stream position matches at
// most one cached entry, so hits[l] never exceeds sampleSizes[l]. Requesting
// inputs already fully cached yields an empty remainder and hit counts equal
// to the request sizes.
func (s *Store) CompareInputs(sampleSizes []int, stream []float64) (remaining []float64, hits []int, matches []LevelMatches, err error) {
	cached, err := s.partition(PartitionInputs)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(sampleSizes) > len(cached) {
		return nil, nil, nil, fmt.Errorf("%w: request spans %d levels but cache holds %d",
			ErrLevelMissing, len(sampleSizes), len(cached))
	}
	total := 0
	for _, n := range sampleSizes {
		total += n
	}
	if total > len(stream) {
		return nil, nil, nil, fmt.Errorf("%w: sample sizes need %d values but stream has %d",
			ErrCorrupt, total, len(stream))
	}

	remaining = make([]float64, 0, len(stream))
	hits = make([]int, len(sampleSizes))
	matches = make([]LevelMatches, len(sampleSizes))

	offset := 0
	for l, n := range sampleSizes {
		chunk := stream[offset : offset+n]
		offset += n

		// Index the chunk by value; exact float64 equality only.
		byValue := make(map[float64][]int, n)
		for j, v := range chunk {
			byValue[v] = append(byValue[v], j)
		}

		// Each stream position matches at most once, so a cached level
		// holding duplicate values (pre-rounded inputs collide) can never
		// report more hits than the chunk has positions.
		matched := make([]bool, n)
		for i, v := range cached[l] {
			for _, j := range byValue[v] {
				if matched[j] {
					continue
				}
				matches[l].CacheIndices = append(matches[l].CacheIndices, i)
				matches[l].StreamIndices = append(matches[l].StreamIndices, j)
				matched[j] = true
			}
		}
		hits[l] = len(matches[l].StreamIndices)

		for j, v := range chunk {
			if !matched[j] {
				remaining = append(remaining, v)
			}
		}
	}
	return remaining, hits, matches, nil
}

// NarrowOutputs writes the updated_outputs partition: for every level, only
// the cached outputs at the matched cache positions, in match order. The
// narrowed partition is persisted to the backing file immediately.
func (s *Store) NarrowOutputs(matches []LevelMatches) error {
	outputs, err := s.partition(PartitionOutputs)
	if err != nil {
		return err
	}
	if len(matches) > len(outputs) {
		return fmt.Errorf("%w: matches span %d levels but cache holds %d",
			ErrLevelMissing, len(matches), len(outputs))
	}

	updated := make([][]float64, len(matches))
	for l, m := range matches {
		kept := make([]float64, 0, len(m.CacheIndices))
		for _, i := range m.CacheIndices {
			if i < 0 || i >= len(outputs[l]) {
				return fmt.Errorf("%w: cache index %d outside level %d outputs (%d values)",
					ErrCorrupt, i, l, len(outputs[l]))
			}
			kept = append(kept, outputs[l][i])
		}
		updated[l] = kept
	}
	s.partitions[PartitionUpdatedOutputs] = updated
	return encodeFile(s.path, s.partitions)
}

// MergedOutputs concatenates a level's narrowed cached outputs with freshly
// computed ones, cached first. The result is an unordered sample set: its
// order does not match the input request order, which is fine for the
// count-weighted statistics downstream.
func (s *Store) MergedOutputs(level int, fresh []float64) ([]float64, error) {
	cached, err := s.Read(PartitionUpdatedOutputs, level)
	if err != nil {
		return nil, err
	}
	merged := make([]float64, 0, len(cached)+len(fresh))
	merged = append(merged, cached...)
	merged = append(merged, fresh...)
	return merged, nil
}
