package bag

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vela-data/granular/granerr"
)

// Reader gives O(1) random access to the records written by a Writer.
// A Reader's file cursor and offset cache are not safe for concurrent
// use by multiple goroutines against the same handle.
type Reader struct {
	path       string
	file       *os.File
	size       int64
	count      int
	cacheIndex bool
	offsets    []int64 // populated when cacheIndex is true
	mu         sync.Mutex
}

// Open opens an existing Bag file for read-only random access.
// cacheIndex controls whether the offset table is held in memory
// (O(1) lookups, one extra slice the size of the record count) or
// re-read from disk on every access (lower memory, more I/O).
func Open(path string, cacheIndex bool) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bag: open %s: %w", path, err)
	}

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("bag: seek %s: %w", path, err)
	}
	if size < countSize {
		file.Close()
		return nil, &granerr.CorruptionError{Path: path, Reason: "file too small to contain a trailer"}
	}

	var countBuf [countSize]byte
	if _, err := file.ReadAt(countBuf[:], size-countSize); err != nil {
		file.Close()
		return nil, fmt.Errorf("bag: read count: %w", err)
	}
	count := int(binary.LittleEndian.Uint64(countBuf[:]))

	trailerSize := int64(count)*offsetEntrySize + countSize
	if trailerSize > size {
		file.Close()
		return nil, &granerr.CorruptionError{Path: path, Reason: fmt.Sprintf("trailer claims %d records but file is too small", count)}
	}

	r := &Reader{
		path:       path,
		file:       file,
		size:       size,
		count:      count,
		cacheIndex: cacheIndex,
	}
	if cacheIndex {
		offsets, err := r.readOffsets(0, count)
		if err != nil {
			file.Close()
			return nil, err
		}
		r.offsets = offsets
	}
	return r, nil
}

func (r *Reader) readOffsets(start, end int) ([]int64, error) {
	if end <= start {
		return nil, nil
	}
	n := end - start
	buf := make([]byte, n*offsetEntrySize)
	tableStart := r.size - int64(r.count)*offsetEntrySize - countSize
	if _, err := r.file.ReadAt(buf, tableStart+int64(start)*offsetEntrySize); err != nil {
		return nil, fmt.Errorf("bag: read offset table: %w", err)
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = int64(binary.LittleEndian.Uint64(buf[i*offsetEntrySize:]))
	}
	return out, nil
}

func (r *Reader) offsetOf(index int) (int64, error) {
	if r.cacheIndex {
		return r.offsets[index], nil
	}
	offs, err := r.readOffsets(index, index+1)
	if err != nil {
		return 0, err
	}
	return offs[0], nil
}

// Len returns the number of records in the Bag.
func (r *Reader) Len() int {
	return r.count
}

// Size returns the Bag file's total on-disk size, including framing
// and trailer.
func (r *Reader) Size() int64 {
	return r.size
}

// At returns the bytes of record index. index must be in [0, Len());
// an out-of-range index returns an IndexError.
func (r *Reader) At(index int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= r.count {
		return nil, &granerr.IndexError{Index: index, Len: r.count}
	}
	return r.readAt(index)
}

func (r *Reader) readAt(index int) ([]byte, error) {
	off, err := r.offsetOf(index)
	if err != nil {
		return nil, err
	}
	var header [lengthHeaderSize]byte
	if _, err := r.file.ReadAt(header[:], off); err != nil {
		return nil, fmt.Errorf("bag: read length header at record %d: %w", index, err)
	}
	length := binary.LittleEndian.Uint64(header[:])

	payloadEnd := off + lengthHeaderSize + int64(length)
	tableStart := r.size - int64(r.count)*offsetEntrySize - countSize
	if payloadEnd > tableStart {
		return nil, &granerr.CorruptionError{
			Path:   r.path,
			Reason: fmt.Sprintf("record %d length header promises bytes past end of payload region", index),
		}
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := r.file.ReadAt(payload, off+lengthHeaderSize); err != nil {
			return nil, fmt.Errorf("bag: read payload at record %d: %w", index, err)
		}
	}
	return payload, nil
}

// Range returns the records whose indices fall in [start, end),
// clipped silently to [0, Len()). Negative indices are not supported.
func (r *Reader) Range(start, end int) ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if start < 0 {
		start = 0
	}
	if end > r.count {
		end = r.count
	}
	if end <= start {
		return nil, nil
	}
	out := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		b, err := r.readAt(i)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Path returns the file path this reader was opened from.
func (r *Reader) Path() string { return r.path }
