// Package bag implements the append-only, length-prefixed record
// container that every higher layer of granular is built from.
//
// A Bag file is a sequence of records, each a u64 little-endian length
// followed by that many payload bytes, with a trailing index of
// per-record offsets and a record count appended once the writer is
// closed. See the package-level constants for the exact trailer
// layout.
package bag

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("granular/bag")

const (
	lengthHeaderSize = 8
	offsetEntrySize  = 8
	countSize        = 8

	// writeBufSize mirrors the teacher's primary-storage buffer size so a
	// Bag writer amortizes one syscall per several records instead of one
	// per append.
	writeBufSize = 16 * 4096
)

// Writer appends records to a Bag file and finalizes the trailing
// offset index on Close. A Writer exclusively owns its file handle and
// must not be shared across goroutines without external locking.
type Writer struct {
	path    string
	file    *os.File
	buf     *bufio.Writer
	offsets []int64
	pos     int64 // byte offset of the next record's length header
	mu      sync.Mutex
	closed  bool
}

// Create opens a new Bag file for writing at path. The file must not
// already exist with records in it; Create truncates or creates fresh.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("bag: create %s: %w", path, err)
	}
	log.Debugw("created bag", "path", path)
	return &Writer{
		path: path,
		file: file,
		buf:  bufio.NewWriterSize(file, writeBufSize),
	}, nil
}

// Append writes one record and returns its 0-based index.
func (w *Writer) Append(payload []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, fmt.Errorf("bag: append to closed writer %s", w.path)
	}

	var header [lengthHeaderSize]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(payload)))
	if _, err := w.buf.Write(header[:]); err != nil {
		return 0, fmt.Errorf("bag: write length header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.buf.Write(payload); err != nil {
			return 0, fmt.Errorf("bag: write payload: %w", err)
		}
	}

	index := len(w.offsets)
	w.offsets = append(w.offsets, w.pos)
	w.pos += lengthHeaderSize + int64(len(payload))
	return index, nil
}

// Len returns the number of records appended so far.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.offsets)
}

// Size returns the total number of bytes the file will occupy once the
// trailer is written, i.e. the final on-disk size.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.trailerSizeLocked()
}

func (w *Writer) trailerSizeLocked() int64 {
	return w.pos + int64(len(w.offsets))*offsetEntrySize + countSize
}

// Close flushes buffered payload bytes, appends the trailing offset
// index and record count, and closes the underlying file. Close is
// safe to call on a writer that previously returned an error from
// Append: outstanding payload bytes are still flushed and the file is
// still closed, though the resulting file will lack a usable trailer
// only if flushing itself fails.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.file.Close()

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("bag: flush payload: %w", err)
	}

	trailer := make([]byte, len(w.offsets)*offsetEntrySize+countSize)
	for i, off := range w.offsets {
		binary.LittleEndian.PutUint64(trailer[i*offsetEntrySize:], uint64(off))
	}
	binary.LittleEndian.PutUint64(trailer[len(w.offsets)*offsetEntrySize:], uint64(len(w.offsets)))

	if _, err := w.file.Write(trailer); err != nil {
		return fmt.Errorf("bag: write trailer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("bag: sync: %w", err)
	}
	log.Debugw("closed bag", "path", w.path, "records", len(w.offsets), "size", w.pos+int64(len(trailer)))
	return nil
}

// Path returns the file path this writer was created with.
func (w *Writer) Path() string { return w.path }

var _ io.Closer = (*Writer)(nil)
