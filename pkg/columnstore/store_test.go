package columnstore

import (
	"bytes"
	"testing"

	"github.com/bobboyms/percolator/pkg/kv"
)

func TestReadReturnsGreatestWithinRange(t *testing.T) {
	s := New()
	k := kv.Key("alice")
	s.Write(k, Data, 1, kv.DataValue([]byte("v1")))
	s.Write(k, Data, 5, kv.DataValue([]byte("v5")))
	s.Write(k, Data, 10, kv.DataValue([]byte("v10")))

	ts, v, ok := s.Read(k, Data, AtMost(7))
	if !ok || ts != 5 || !bytes.Equal(v.Data, []byte("v5")) {
		t.Fatalf("Read(<=7) = ts=%d v=%q ok=%v, want ts=5 v=v5", ts, v.Data, ok)
	}

	ts, v, ok = s.Read(k, Data, AtMost(0))
	if ok {
		t.Fatalf("Read(<=0) = ts=%d v=%q, want none", ts, v.Data)
	}

	ts, v, ok = s.Read(k, Data, AtMost(100))
	if !ok || ts != 10 || !bytes.Equal(v.Data, []byte("v10")) {
		t.Fatalf("Read(<=100) = ts=%d v=%q ok=%v, want ts=10 v=v10", ts, v.Data, ok)
	}
}

func TestReadDoesNotLeakAcrossKeys(t *testing.T) {
	s := New()
	s.Write(kv.Key("a"), Data, 1, kv.DataValue([]byte("a1")))
	s.Write(kv.Key("b"), Data, 2, kv.DataValue([]byte("b2")))

	_, v, ok := s.Read(kv.Key("a"), Data, All())
	if !ok || !bytes.Equal(v.Data, []byte("a1")) {
		t.Fatalf("Read(a) = %q ok=%v, want a1", v.Data, ok)
	}
}

func TestEraseRemovesCell(t *testing.T) {
	s := New()
	k := kv.Key("k")
	s.Write(k, Lock, 3, kv.DataValue([]byte("primary")))
	if _, _, ok := s.Exists(k, Lock, All()); !ok {
		t.Fatalf("expected lock present before erase")
	}
	s.Erase(k, Lock, 3)
	if _, _, ok := s.Exists(k, Lock, All()); ok {
		t.Fatalf("expected lock gone after erase")
	}
}

func TestFindWritePointingTo(t *testing.T) {
	s := New()
	k := kv.Key("k")
	s.Write(k, Write, 10, kv.TimestampValue(5))
	s.Write(k, Write, 20, kv.TimestampValue(15))

	commitTs, ok := s.FindWritePointingTo(k, 5)
	if !ok || commitTs != 10 {
		t.Fatalf("FindWritePointingTo(5) = %d ok=%v, want 10", commitTs, ok)
	}

	commitTs, ok = s.FindWritePointingTo(k, 15)
	if !ok || commitTs != 20 {
		t.Fatalf("FindWritePointingTo(15) = %d ok=%v, want 20", commitTs, ok)
	}

	if _, ok := s.FindWritePointingTo(k, 999); ok {
		t.Fatalf("FindWritePointingTo(999) should find nothing")
	}
}

func TestDataColumnCompressesLargePayloadsTransparently(t *testing.T) {
	s := New()
	k := kv.Key("big")
	payload := bytes.Repeat([]byte("percolator"), 100)
	s.Write(k, Data, 1, kv.DataValue(payload))

	_, v, ok := s.Read(k, Data, All())
	if !ok {
		t.Fatalf("expected data row present")
	}
	if !bytes.Equal(v.Data, payload) {
		t.Fatalf("decoded payload mismatch: got %d bytes, want %d", len(v.Data), len(payload))
	}
}
