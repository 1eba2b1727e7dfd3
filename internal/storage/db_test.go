package storage

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// testStore runs the shared suite against a Store implementation.
func testStore(t *testing.T, s Store) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := s.Put([]byte("k1"), []byte("v1"), 0); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get([]byte("k1"))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, []byte("v1")) {
			t.Errorf("Get = %q, want v1", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := s.Get([]byte("nope")); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(missing) = %v, want ErrNotFound", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s.Put([]byte("ow"), []byte("first"), 0)
		s.Put([]byte("ow"), []byte("second"), time.Hour)
		got, err := s.Get([]byte("ow"))
		if err != nil || string(got) != "second" {
			t.Errorf("Get = %q, %v; want second", got, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s.Put([]byte("del"), []byte("x"), 0)
		if err := s.Delete([]byte("del")); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get([]byte("del")); !errors.Is(err, ErrNotFound) {
			t.Errorf("deleted key still present: %v", err)
		}
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		s.Put([]byte("p/a"), []byte("1"), 0)
		s.Put([]byte("p/b"), []byte("2"), 0)
		s.Put([]byte("q/a"), []byte("3"), 0)
		if err := s.DeletePrefix([]byte("p/")); err != nil {
			t.Fatalf("DeletePrefix: %v", err)
		}
		if _, err := s.Get([]byte("p/a")); !errors.Is(err, ErrNotFound) {
			t.Error("p/a survived DeletePrefix")
		}
		if _, err := s.Get([]byte("q/a")); err != nil {
			t.Errorf("q/a removed by unrelated prefix: %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := NewBadgerInMemory()
	if err != nil {
		t.Fatalf("NewBadgerInMemory: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestBadgerStore_Disk(t *testing.T) {
	s, err := NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestMemoryStore_TTL(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	m.Put([]byte("short"), []byte("v"), time.Minute)
	m.Put([]byte("forever"), []byte("v"), 0)

	now = now.Add(59 * time.Second)
	if _, err := m.Get([]byte("short")); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	now = now.Add(time.Second)
	if _, err := m.Get([]byte("short")); !errors.Is(err, ErrNotFound) {
		t.Errorf("entry should expire at its TTL, got %v", err)
	}
	if _, err := m.Get([]byte("forever")); err != nil {
		t.Errorf("zero-TTL entry expired: %v", err)
	}
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	m := NewMemory()
	val := []byte("abc")
	m.Put([]byte("k"), val, 0)
	val[0] = 'X'

	got, _ := m.Get([]byte("k"))
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
	got[1] = 'Y'
	again, _ := m.Get([]byte("k"))
	if string(again) != "abc" {
		t.Errorf("returned value aliased stored slice: %q", again)
	}
}
