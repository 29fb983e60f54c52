package storage

import (
	"bytes"
	"testing"
)

func TestNamespace_Isolation(t *testing.T) {
	inner := NewMemory()
	a := NewNamespace(inner, "a")
	b := NewNamespace(inner, "b")

	if err := a.Put([]byte("k"), []byte("from-a")); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := b.Put([]byte("k"), []byte("from-b")); err != nil {
		t.Fatalf("put b: %v", err)
	}

	got, err := a.Get([]byte("k"))
	if err != nil || !bytes.Equal(got, []byte("from-a")) {
		t.Fatalf("a.Get = %q, %v; want from-a", got, err)
	}
	raw, err := inner.Get([]byte("b/k"))
	if err != nil || !bytes.Equal(raw, []byte("from-b")) {
		t.Fatalf("inner b/k = %q, %v; want from-b", raw, err)
	}
	if a.Name() != "a" {
		t.Fatalf("Name() = %q", a.Name())
	}
}

func TestNamespace_ForEachStripsName(t *testing.T) {
	inner := NewMemory()
	ns := NewNamespace(inner, "archive")
	if err := ns.Put([]byte("h/1"), []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := inner.Put([]byte("other/h/2"), []byte("y")); err != nil {
		t.Fatal(err)
	}

	var keys []string
	err := ns.ForEach([]byte("h/"), func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(keys) != 1 || keys[0] != "h/1" {
		t.Fatalf("keys = %v, want [h/1]", keys)
	}
}

func TestNamespace_Batch(t *testing.T) {
	for _, inner := range []DB{NewMemory(), openBadger(t)} {
		ns := NewNamespace(inner, "ns")
		batch := ns.NewBatch()
		if err := batch.Put([]byte("k"), []byte("v")); err != nil {
			t.Fatal(err)
		}
		if err := batch.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
		raw, err := inner.Get([]byte("ns/k"))
		if err != nil || string(raw) != "v" {
			t.Fatalf("%T: inner ns/k = %q, %v", inner, raw, err)
		}
		if err := ns.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if ok, _ := inner.Has([]byte("ns/k")); !ok {
			t.Fatalf("%T: closing the namespace must leave the inner db usable", inner)
		}
	}
}

func openBadger(t *testing.T) DB {
	t.Helper()
	db, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
