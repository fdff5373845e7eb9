// Package skilltree synthesizes the hierarchical topic model of the corpus.
package skilltree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/studycast/internal/docstore"
	"github.com/abhisek/studycast/internal/remediation"
)

// DocKey is the docstore key of the current skill tree.
const DocKey = "skill_tree"

// ErrEmptyTree is returned when a synthesized tree has no leaf skills.
var ErrEmptyTree = errors.New("skill tree has no skills")

// Skill is a node of the tree. Nodes without children are leaf skills,
// the targets of assessment questions.
type Skill struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Children    []Skill `json:"children,omitempty"`
}

// IsLeaf reports whether s has no children.
func (s Skill) IsLeaf() bool { return len(s.Children) == 0 }

// Tree is a skill hierarchy under a single root.
type Tree struct {
	Root Skill `json:"root"`
}

// Leaves returns the leaf skills in depth-first order. A root without
// children is not a leaf skill.
func (t *Tree) Leaves() []Skill {
	var out []Skill
	var walk func(s Skill)
	walk = func(s Skill) {
		if s.IsLeaf() {
			out = append(out, s)
			return
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	for _, c := range t.Root.Children {
		walk(c)
	}
	return out
}

// HasLeaf reports whether name is a leaf skill of t.
func (t *Tree) HasLeaf(name string) bool {
	for _, l := range t.Leaves() {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Validate checks that the tree has at least one leaf, that every node is
// named, and that leaf names are unique. Leaf names key questions and
// audio files, so two leaves may not share an audio file name either.
func (t *Tree) Validate() error {
	if len(t.Leaves()) == 0 {
		return ErrEmptyTree
	}

	var errs []string
	seen := make(map[string]bool)
	files := make(map[string]string)

	var walk func(s Skill, path string)
	walk = func(s Skill, path string) {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("unnamed skill under %q", path))
		}
		if s.IsLeaf() && name != "" {
			if seen[name] {
				errs = append(errs, fmt.Sprintf("duplicate leaf skill: %q", name))
			}
			seen[name] = true

			file := remediation.FileName(name)
			if other, ok := files[file]; ok && other != name {
				errs = append(errs, fmt.Sprintf("leaf skills %q and %q share audio file %s", other, name, file))
			} else {
				files[file] = name
			}
		}
		for _, c := range s.Children {
			walk(c, path+"/"+name)
		}
	}
	walk(t.Root, "")

	if len(errs) > 0 {
		return fmt.Errorf("skill tree validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Load reads the current tree from ds. A missing tree wraps
// docstore.ErrNotFound.
func Load(ds *docstore.Store) (*Tree, error) {
	var t Tree
	if err := ds.Get(DocKey, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save replaces the current tree in ds.
func Save(ds *docstore.Store, t *Tree) error {
	return ds.Put(DocKey, t)
}
