// Package wal implements the write-ahead log: the binary record format, the
// streaming decoder that parses it back out of a byte stream, the pool of
// append-only segment files writers contend for, and the background writer
// that batches records into fewer flushes.
package wal

import (
	"encoding/binary"
	"fmt"
)

// Op identifies the kind of mutation a Record represents.
type Op byte

const (
	// OpSet is the tag byte for a SET record.
	OpSet Op = 'S'
	// OpDelete is the tag byte for a DELETE record.
	OpDelete Op = 'D'

	newline = '\n'
)

// Record is a single decoded WAL entry. Value is nil for OpDelete.
type Record struct {
	Op    Op
	Time  uint64 // nanoseconds since the Unix epoch, captured at write time
	Key   []byte
	Value []byte
}

// Encode appends the binary representation of r to dst and returns the
// extended slice. Layout, little-endian throughout:
//
//	SET:    'S' T(16 as two uint64 halves, see below) klen(4) key vlen(4) value '\n'
//	DELETE: 'D' T(16) klen(4) key '\n'
//
// T is stored as a 128-bit field on the wire, but only the low 64 bits are
// meaningful: nanosecond
// Unix timestamps do not need more than 64 bits until the year 2554, so the
// high 64 bits are always encoded as zero and ignored on decode.
func (r Record) Encode(dst []byte) []byte {
	var ts [16]byte
	binary.LittleEndian.PutUint64(ts[:8], r.Time)
	switch r.Op {
	case OpSet:
		dst = append(dst, byte(OpSet))
		dst = append(dst, ts[:]...)
		dst = appendU32Prefixed(dst, r.Key)
		dst = appendU32Prefixed(dst, r.Value)
		dst = append(dst, newline)
	case OpDelete:
		dst = append(dst, byte(OpDelete))
		dst = append(dst, ts[:]...)
		dst = appendU32Prefixed(dst, r.Key)
		dst = append(dst, newline)
	default:
		panic(fmt.Sprintf("wal: unknown op %q", byte(r.Op)))
	}
	return dst
}

func appendU32Prefixed(dst []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, b...)
	return dst
}

// EncodedLen returns the exact number of bytes Encode would append for r,
// letting callers size a buffer up front instead of relying on append growth.
func (r Record) EncodedLen() int {
	switch r.Op {
	case OpSet:
		return 1 + 16 + 4 + len(r.Key) + 4 + len(r.Value) + 1
	case OpDelete:
		return 1 + 16 + 4 + len(r.Key) + 1
	default:
		return 0
	}
}
