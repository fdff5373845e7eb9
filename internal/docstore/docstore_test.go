package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPutGet(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := s.Put("skill_tree", doc{Name: "go", Count: 3}); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got doc
	if err := s.Get("skill_tree", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "go" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}

	// Last writer wins.
	if err := s.Put("skill_tree", doc{Name: "rust"}); err != nil {
		t.Fatalf("put again: %v", err)
	}
	if err := s.Get("skill_tree", &got); err != nil {
		t.Fatalf("get again: %v", err)
	}
	if got.Name != "rust" || got.Count != 0 {
		t.Errorf("after overwrite got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var got doc
	err = s.Get("assessment", &got)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../escape", "Upper", "a/b"} {
		if err := s.Put(key, doc{}); err == nil {
			t.Errorf("Put(%q): expected error", key)
		}
	}
}

func TestWriteFileAtomicLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")
	if err := WriteFileAtomic(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		t.Fatalf("unexpected dir contents: %v", entries)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestGetCorruptDocument(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(s.Path("assessment"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var got doc
	err = s.Get("assessment", &got)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestRawRestore(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	prev, ok, err := s.Raw("skill_tree")
	if err != nil || ok || prev != nil {
		t.Fatalf("raw on empty store: %q %v %v", prev, ok, err)
	}

	if err := s.Put("skill_tree", doc{Name: "go"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Restoring an absent snapshot removes the document.
	if err := s.Restore("skill_tree", prev, ok); err != nil {
		t.Fatalf("restore absent: %v", err)
	}
	var got doc
	if err := s.Get("skill_tree", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after restore, got %v", err)
	}

	if err := s.Put("skill_tree", doc{Name: "go", Count: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	prev, ok, err = s.Raw("skill_tree")
	if err != nil || !ok {
		t.Fatalf("raw: %v %v", ok, err)
	}
	if err := s.Put("skill_tree", doc{Name: "rust"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Restore("skill_tree", prev, ok); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := s.Get("skill_tree", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "go" || got.Count != 1 {
		t.Errorf("after restore got %+v", got)
	}
}
