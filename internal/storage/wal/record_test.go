package wal

import (
	"errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	cases := []Record{
		{Op: OpSet, Time: 123456789, Key: []byte("k1"), Value: []byte("v1")},
		{Op: OpSet, Time: 1, Key: []byte("key"), Value: []byte("")},
		{Op: OpDelete, Time: 42, Key: []byte("gone")},
	}

	for _, want := range cases {
		buf := want.Encode(nil)
		d := NewDecoder()
		d.Feed(buf)

		got, ok, err := d.Next()
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		if !ok {
			t.Fatalf("expected a decoded record, got none")
		}
		if got.Op != want.Op || got.Time != want.Time || string(got.Key) != string(want.Key) {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
		}
		if want.Op == OpSet && string(got.Value) != string(want.Value) {
			t.Fatalf("value mismatch: got %q want %q", got.Value, want.Value)
		}

		if _, ok, err := d.Next(); ok || err != nil {
			t.Fatalf("expected no further record, got ok=%v err=%v", ok, err)
		}
	}
}

func TestDecoderSkipsEmptyLines(t *testing.T) {
	r := Record{Op: OpDelete, Time: 7, Key: []byte("a")}
	buf := append([]byte{newline, newline}, r.Encode(nil)...)

	d := NewDecoder()
	d.Feed(buf)

	got, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("expected a record after leading newlines, ok=%v err=%v", ok, err)
	}
	if string(got.Key) != "a" {
		t.Fatalf("got key %q", got.Key)
	}
}

func TestDecoderRejectsBadTag(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte{'X', 1, 2, 3})

	_, ok, err := d.Next()
	if ok {
		t.Fatalf("expected no record for a bad tag")
	}
	var de *DecodeError
	if err == nil {
		t.Fatalf("expected a decode error")
	}
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}
