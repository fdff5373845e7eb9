package skilltree

import (
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/studycast/internal/docstore"
)

func sampleTree() *Tree {
	return &Tree{Root: Skill{
		Name: "Go",
		Children: []Skill{
			{Name: "Concurrency", Children: []Skill{
				{Name: "Goroutines", Description: "Start concurrent work"},
				{Name: "Channels", Description: "Communicate between goroutines"},
			}},
			{Name: "Errors", Children: []Skill{
				{Name: "Wrapping", Description: "Wrap errors with %w"},
			}},
		},
	}}
}

func TestLeaves(t *testing.T) {
	leaves := sampleTree().Leaves()
	var names []string
	for _, l := range leaves {
		names = append(names, l.Name)
	}
	got := strings.Join(names, ",")
	if got != "Goroutines,Channels,Wrapping" {
		t.Errorf("leaves = %s", got)
	}
}

func TestLeavesTopicWithoutChildren(t *testing.T) {
	tree := &Tree{Root: Skill{Name: "Go", Children: []Skill{{Name: "Testing"}}}}
	leaves := tree.Leaves()
	if len(leaves) != 1 || leaves[0].Name != "Testing" {
		t.Errorf("leaves = %+v", leaves)
	}
}

func TestHasLeaf(t *testing.T) {
	tree := sampleTree()
	if !tree.HasLeaf("Channels") {
		t.Error("expected Channels to be a leaf")
	}
	if tree.HasLeaf("Concurrency") {
		t.Error("Concurrency is a topic, not a leaf")
	}
}

func TestValidate(t *testing.T) {
	if err := sampleTree().Validate(); err != nil {
		t.Fatalf("valid tree: %v", err)
	}

	empty := &Tree{Root: Skill{Name: "Go"}}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyTree) {
		t.Errorf("root only: expected ErrEmptyTree, got %v", err)
	}

	dup := sampleTree()
	dup.Root.Children[1].Children[0].Name = "Channels"
	err := dup.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("duplicate leaves: got %v", err)
	}

	unnamed := sampleTree()
	unnamed.Root.Children[0].Children[0].Name = "  "
	err = unnamed.Validate()
	if err == nil || !strings.Contains(err.Error(), "unnamed") {
		t.Errorf("unnamed skill: got %v", err)
	}
}

func TestValidateAudioFileCollision(t *testing.T) {
	tree := &Tree{Root: Skill{Name: "Go", Children: []Skill{
		{Name: "Errors", Children: []Skill{
			{Name: "Errors: wrapping"},
			{Name: "Errors, wrapping"},
		}},
	}}}
	err := tree.Validate()
	if err == nil {
		t.Fatal("expected error for leaves sharing an audio file")
	}
	if !strings.Contains(err.Error(), "Errors__wrapping.mp3") {
		t.Errorf("error should name the shared file: %v", err)
	}

	long := strings.Repeat("x", 60)
	tree = &Tree{Root: Skill{Name: "Go", Children: []Skill{
		{Name: "Long", Children: []Skill{
			{Name: long + "a"},
			{Name: long + "b"},
		}},
	}}}
	if err := tree.Validate(); err == nil {
		t.Error("expected error for leaves equal after truncation")
	}
}

func TestSaveLoad(t *testing.T) {
	ds, err := docstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("docstore: %v", err)
	}

	if _, err := Load(ds); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := Save(ds, sampleTree()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(ds)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Leaves()) != 3 || got.Root.Name != "Go" {
		t.Errorf("loaded tree = %+v", got)
	}
}
