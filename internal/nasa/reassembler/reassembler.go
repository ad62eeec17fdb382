// Package reassembler recovers candidate NASA-bus frames from an
// append-only byte stream that may arrive in arbitrarily sized chunks.
//
// The recovery logic is a pure function over a byte buffer: it never
// blocks, never allocates a goroutine, and guarantees forward progress —
// every call consumes zero or more bytes and never revisits them. This
// mirrors the incremental-accumulator shape used elsewhere in this
// codebase for building complete units out of a stream of arbitrarily
// sized chunks (one chunk at a time, carrying partial state forward
// between calls) rather than a LiDAR-specific rotation detector.
package reassembler

import (
	"bytes"
	"encoding/binary"
)

const (
	startByte = 0x32

	minFrameLen = 16
	maxFrameLen = 1500
)

// Resync is an informational diagnostic reporting bytes discarded while
// searching for the next start delimiter.
type Resync struct {
	// Skipped is the number of bytes discarded.
	Skipped int
}

// Reassembler holds the buffered tail of bytes not yet resolved into a
// complete frame. It is not safe for concurrent use: the spec requires
// the read→reassemble→decode chain to run single-threaded relative to
// one byte stream, since the cursor state here is order-dependent.
type Reassembler struct {
	buf []byte
}

// New creates an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{}
}

// Feed appends chunk to the internal buffer and extracts zero or more
// complete candidate frames, per SPEC_FULL.md §4.1. It returns the
// frames found (each a freshly allocated, independent byte slice), and
// the resync events emitted while searching for frame starts. The
// reassembler retains any unresolved tail internally for the next Feed
// call — it does not validate CRC or the end byte; that is the
// decoder's job.
func (r *Reassembler) Feed(chunk []byte) (frames [][]byte, resyncs []Resync) {
	r.buf = append(r.buf, chunk...)

	for {
		if len(r.buf) == 0 {
			return frames, resyncs
		}

		if r.buf[0] != startByte {
			offset := bytes.IndexByte(r.buf, startByte)
			if offset < 0 {
				resyncs = append(resyncs, Resync{Skipped: len(r.buf)})
				r.buf = nil
				return frames, resyncs
			}
			resyncs = append(resyncs, Resync{Skipped: offset})
			r.buf = r.buf[offset:]
			continue
		}

		if len(r.buf) < 3 {
			return frames, resyncs
		}

		declared := int(binary.BigEndian.Uint16(r.buf[1:3])) + 2
		if declared < minFrameLen || declared > maxFrameLen {
			resyncs = append(resyncs, Resync{Skipped: 1})
			r.buf = r.buf[1:]
			continue
		}

		if len(r.buf) < declared {
			return frames, resyncs
		}

		frame := make([]byte, declared)
		copy(frame, r.buf[:declared])
		frames = append(frames, frame)
		r.buf = r.buf[declared:]
	}
}

// Tail returns the bytes currently buffered but not yet resolved into a
// frame.
func (r *Reassembler) Tail() []byte {
	return r.buf
}

