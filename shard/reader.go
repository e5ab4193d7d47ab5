package shard

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/dataset"
	"github.com/vela-data/granular/granerr"
	"github.com/vela-data/granular/specfile"
)

// ReaderOption configures a Reader at construction.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	shardStart int
	shardStep  int
	cacheIndex bool
	cacheRefs  bool
}

// WithReaderShardStart selects the first shard index (by position
// among discovered shards, 0-based) this reader owns (default 0).
func WithReaderShardStart(n int) ReaderOption {
	return func(c *readerConfig) { c.shardStart = n }
}

// WithReaderShardStep sets the stride between shard indices this
// reader owns (default 1).
func WithReaderShardStep(n int) ReaderOption {
	return func(c *readerConfig) { c.shardStep = n }
}

// WithReaderCacheIndex forwards cache_index to every opened shard Dataset.
func WithReaderCacheIndex(v bool) ReaderOption {
	return func(c *readerConfig) { c.cacheIndex = v }
}

// WithReaderCacheRefs forwards cache_refs to every opened shard Dataset.
func WithReaderCacheRefs(v bool) ReaderOption {
	return func(c *readerConfig) { c.cacheRefs = v }
}

// Reader gives random-access read-only access to the logical sequence
// formed by concatenating, in numeric shard-name order, the strided
// subset of shard directories this reader owns.
type Reader struct {
	root   string
	spec   specfile.Spec
	shards []*dataset.Reader
	prefix []int // prefix[i] = total length of shards[:i]
}

// Open discovers shard directories under root, sorts them by numeric
// name, selects the subset at positions congruent to shard_start
// modulo shard_step, and opens each as a Dataset. Every selected
// shard's spec must agree; disagreement is a corruption error.
func Open(root string, reg *codec.Registry, opts ...ReaderOption) (*Reader, error) {
	cfg := readerConfig{shardStep: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.shardStep <= 0 {
		return nil, &granerr.TypeError{Reason: "shard_step must be positive"}
	}

	names, err := discoverShardDirs(root)
	if err != nil {
		return nil, err
	}

	var selected []string
	for i, name := range names {
		if i%cfg.shardStep == cfg.shardStart%cfg.shardStep {
			selected = append(selected, name)
		}
	}

	r := &Reader{root: root}
	for _, name := range selected {
		dr, err := dataset.Open(filepath.Join(root, name), reg, cfg.cacheIndex, cfg.cacheRefs)
		if err != nil {
			closeShards(r.shards)
			return nil, err
		}
		if r.spec == nil {
			r.spec = dr.Spec()
		} else if !specfile.Equal(r.spec, dr.Spec()) {
			closeShards(r.shards)
			dr.Close()
			return nil, &granerr.CorruptionError{Path: root, Reason: "shards declare disagreeing specs"}
		}
		r.shards = append(r.shards, dr)
	}

	r.prefix = make([]int, len(r.shards)+1)
	for i, s := range r.shards {
		r.prefix[i+1] = r.prefix[i] + s.Len()
	}
	return r, nil
}

func discoverShardDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		ni, _ := strconv.Atoi(names[i])
		nj, _ := strconv.Atoi(names[j])
		return ni < nj
	})
	return names, nil
}

func closeShards(shards []*dataset.Reader) {
	for _, s := range shards {
		s.Close()
	}
}

// Len returns the total record count across every selected shard.
func (r *Reader) Len() int {
	return r.prefix[len(r.prefix)-1]
}

// Size returns the sum of every selected shard's Size.
func (r *Reader) Size() int64 {
	var total int64
	for _, s := range r.shards {
		total += s.Size()
	}
	return total
}

// Spec returns the dataset spec shared by every shard.
func (r *Reader) Spec() specfile.Spec { return r.spec }

// Shards returns the number of shards this reader selected.
func (r *Reader) Shards() int { return len(r.shards) }

// locate maps a logical index to its owning shard and local index
// within that shard via a binary search over the prefix-sum table.
func (r *Reader) locate(index int) (shard *dataset.Reader, local int, err error) {
	if index < 0 || index >= r.Len() {
		return nil, 0, &granerr.IndexError{Index: index, Len: r.Len()}
	}
	i := sort.Search(len(r.prefix)-1, func(i int) bool { return r.prefix[i+1] > index })
	return r.shards[i], index - r.prefix[i], nil
}

// At reads and decodes the full logical record at index.
func (r *Reader) At(index int) (dataset.Record, error) {
	shard, local, err := r.locate(index)
	if err != nil {
		return nil, err
	}
	return shard.At(local)
}

// ReadSelect reads a projection of the logical record at index; see
// dataset.Reader.ReadSelect for the projection contract.
func (r *Reader) ReadSelect(index int, selection map[string]any) (dataset.Record, error) {
	shard, local, err := r.locate(index)
	if err != nil {
		return nil, err
	}
	return shard.ReadSelect(local, selection)
}

// Close releases every selected shard's Dataset reader.
func (r *Reader) Close() error {
	var firstErr error
	for _, s := range r.shards {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
