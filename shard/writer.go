// Package shard implements the strided sharded distribution layer
// over Dataset directories (spec.md §4.4): a ShardedDatasetWriter
// assigns itself a disjoint set of shard indices and rolls to a new
// shard directory once a byte-size or record-count budget is
// reached; a ShardedDatasetReader discovers shard directories,
// selects the strided subset it owns, and concatenates them into one
// logical record sequence.
package shard

import (
	"fmt"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/dataset"
	"github.com/vela-data/granular/granerr"
	"github.com/vela-data/granular/specfile"
)

var log = logging.Logger("granular/shard")

const shardNameWidth = 6

func shardDirName(index int) string {
	return fmt.Sprintf("%0*d", shardNameWidth, index)
}

// WriterOption configures a Writer at construction.
type WriterOption func(*Writer)

// WithShardSize caps each shard's on-disk byte size before it rolls.
func WithShardSize(n int64) WriterOption {
	return func(w *Writer) { w.shardSize = n }
}

// WithShardLength caps each shard's record count before it rolls.
func WithShardLength(n int) WriterOption {
	return func(w *Writer) { w.shardLength = n }
}

// WithShardStart sets the first shard index this writer owns (default 0).
func WithShardStart(n int) WriterOption {
	return func(w *Writer) { w.shardStart = n }
}

// WithShardStep sets the stride between shard indices this writer owns
// (default 1). Cooperating distributed writers use disjoint
// shard_start values with a common shard_step to avoid collisions.
func WithShardStep(n int) WriterOption {
	return func(w *Writer) { w.shardStep = n }
}

// Writer appends records across a sequence of shard Datasets rooted
// at one directory, rolling to a new shard on either budget.
type Writer struct {
	root string
	spec specfile.Spec
	reg  *codec.Registry

	shardSize   int64 // 0 = unbounded
	shardLength int   // 0 = unbounded
	shardStart  int
	shardStep   int

	nextShardIndex int
	current        *dataset.Writer // nil between a roll and the next Append
	length         int
	closedSize     int64
}

// Create opens a ShardedDatasetWriter rooted at root with the given
// spec and registry. shard_start defaults to 0, shard_step to 1. The
// first shard is opened immediately so the writer's directory exists
// even if Close is called before any Append.
func Create(root string, spec specfile.Spec, reg *codec.Registry, opts ...WriterOption) (*Writer, error) {
	if err := specfile.Validate(spec, reg); err != nil {
		return nil, err
	}
	w := &Writer{root: root, spec: spec, reg: reg, shardStep: 1}
	for _, opt := range opts {
		opt(w)
	}
	if w.shardStep <= 0 {
		return nil, &granerr.TypeError{Reason: "shard_step must be positive"}
	}
	w.nextShardIndex = w.shardStart

	if err := w.openNextShard(); err != nil {
		return nil, err
	}
	log.Debugw("created sharded dataset", "root", root, "shard_start", w.shardStart, "shard_step", w.shardStep)
	return w, nil
}

func (w *Writer) openNextShard() error {
	dir := filepath.Join(w.root, shardDirName(w.nextShardIndex))
	dw, err := dataset.Create(dir, w.spec, w.reg)
	if err != nil {
		return err
	}
	w.current = dw
	w.nextShardIndex += w.shardStep
	return nil
}

// Append writes record to the current shard, returning the record's
// logical 0-based index within this writer's own append sequence. If
// the previous Append rolled past the budget, the next shard at this
// writer's next assigned shard index is opened lazily here, so every
// shard after the first (which Create opens) is only created once it
// actually has a record to hold. After
// writing, if the current shard's byte size or record count has
// reached the configured budget, the shard is closed; the following
// shard is not opened until the next Append call.
func (w *Writer) Append(record dataset.Record) (int, error) {
	if w.current == nil {
		if err := w.openNextShard(); err != nil {
			return 0, err
		}
	}
	if _, err := w.current.Append(record); err != nil {
		return 0, err
	}
	w.length++

	rollSize := w.shardSize > 0 && w.current.Size() >= w.shardSize
	rollLength := w.shardLength > 0 && w.current.Len() >= w.shardLength
	if rollSize || rollLength {
		w.closedSize += w.current.Size()
		if err := w.current.Close(); err != nil {
			return 0, err
		}
		log.Debugw("rolled shard", "root", w.root, "dir", w.current.Dir(), "records", w.current.Len())
		w.current = nil
	}
	return w.length - 1, nil
}

// Len returns the total number of records appended by this writer
// across all of its shards.
func (w *Writer) Len() int { return w.length }

// Size returns the cumulative on-disk size of every shard this writer
// has produced, including the currently open one, if any.
func (w *Writer) Size() int64 {
	if w.current == nil {
		return w.closedSize
	}
	return w.closedSize + w.current.Size()
}

// Spec returns the sharded dataset's field spec.
func (w *Writer) Spec() specfile.Spec { return w.spec }

// Close finalizes the currently open shard, if any. When the last
// Append exactly filled a budget and rolled, there is no open shard
// left to finalize and Close is a no-op: no empty trailing shard
// directory is ever created.
func (w *Writer) Close() error {
	if w.current == nil {
		log.Debugw("closed sharded dataset", "root", w.root, "records", w.length)
		return nil
	}
	err := w.current.Close()
	log.Debugw("closed sharded dataset", "root", w.root, "records", w.length)
	return err
}
