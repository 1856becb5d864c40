package wal

import "encoding/binary"

// Decoder is a pull-style parser over a growing byte buffer. Callers feed it
// bytes as they arrive from a segment file and call Next repeatedly to drain
// complete records. Next never returns a partially-consumed record: if a
// record's fields cross the end of the buffered data, the read cursor rewinds
// to the start of that record and Next reports "no record available yet"
// rather than leaking partial state across calls.
type Decoder struct {
	buf    []byte
	offset int   // read cursor into buf
	base   int64 // absolute file offset of buf[0], used only for error reporting
}

// NewDecoder returns an empty decoder ready for Feed.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends newly read bytes to the internal buffer.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Compact drops bytes before the read cursor, so the buffer doesn't grow
// unbounded across many Feed calls on a long segment.
func (d *Decoder) Compact() {
	if d.offset == 0 {
		return
	}
	d.base += int64(d.offset)
	n := copy(d.buf, d.buf[d.offset:])
	d.buf = d.buf[:n]
	d.offset = 0
}

// Next returns the next complete record. ok is false when the buffer holds
// no further complete record (end of currently fed data, or a clean trailing
// empty line). The caller should Feed more data and retry. err is non-nil
// only for a genuine decode error (an invalid tag byte at a record
// boundary); ok is always false when err is non-nil.
func (d *Decoder) Next() (rec Record, ok bool, err error) {
	for {
		start := d.offset
		if start >= len(d.buf) {
			return Record{}, false, nil
		}

		tag := d.buf[start]
		if tag == newline {
			// Cosmetic separator on its own: skip and keep scanning.
			d.offset++
			continue
		}

		switch Op(tag) {
		case OpSet:
			rec, n, complete := d.decodeSet(start)
			if !complete {
				d.offset = start
				return Record{}, false, nil
			}
			d.offset = start + n
			return rec, true, nil
		case OpDelete:
			rec, n, complete := d.decodeDelete(start)
			if !complete {
				d.offset = start
				return Record{}, false, nil
			}
			d.offset = start + n
			return rec, true, nil
		default:
			d.offset = start
			return Record{}, false, &DecodeError{
				Offset: d.base + int64(start),
				Cause:  "unexpected tag byte at record boundary",
			}
		}
	}
}

// decodeSet attempts to parse a SET record starting at buf[start]. n is the
// number of bytes the record (and its optional trailing newline) occupies
// when complete is true; complete is false if the buffer runs out partway
// through any field.
func (d *Decoder) decodeSet(start int) (rec Record, n int, complete bool) {
	p := start + 1 // skip tag
	if p+16 > len(d.buf) {
		return Record{}, 0, false
	}
	ts := binary.LittleEndian.Uint64(d.buf[p : p+8])
	p += 16

	if p+4 > len(d.buf) {
		return Record{}, 0, false
	}
	klen := int(binary.LittleEndian.Uint32(d.buf[p : p+4]))
	p += 4
	if p+klen > len(d.buf) {
		return Record{}, 0, false
	}
	key := cloneBytes(d.buf[p : p+klen])
	p += klen

	if p+4 > len(d.buf) {
		return Record{}, 0, false
	}
	vlen := int(binary.LittleEndian.Uint32(d.buf[p : p+4]))
	p += 4
	if p+vlen > len(d.buf) {
		return Record{}, 0, false
	}
	val := cloneBytes(d.buf[p : p+vlen])
	p += vlen

	if p < len(d.buf) && d.buf[p] == newline {
		p++
	}

	rec = Record{Op: OpSet, Time: ts, Key: key, Value: val}
	return rec, p - start, true
}

func (d *Decoder) decodeDelete(start int) (rec Record, n int, complete bool) {
	p := start + 1
	if p+16 > len(d.buf) {
		return Record{}, 0, false
	}
	ts := binary.LittleEndian.Uint64(d.buf[p : p+8])
	p += 16

	if p+4 > len(d.buf) {
		return Record{}, 0, false
	}
	klen := int(binary.LittleEndian.Uint32(d.buf[p : p+4]))
	p += 4
	if p+klen > len(d.buf) {
		return Record{}, 0, false
	}
	key := cloneBytes(d.buf[p : p+klen])
	p += klen

	if p < len(d.buf) && d.buf[p] == newline {
		p++
	}

	rec = Record{Op: OpDelete, Time: ts, Key: key}
	return rec, p - start, true
}

// SkipByte advances the read cursor by one byte. The decoder itself never
// calls this; it exists for callers (like the recovery driver) that want to
// resynchronize past a single bad tag byte after logging a DecodeError,
// since the decoder has no mandate to recover forward on its own.
func (d *Decoder) SkipByte() {
	if d.offset < len(d.buf) {
		d.offset++
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
