package remediation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/abhisek/studycast/internal/docstore"
)

// MaxNameRunes caps the skill-derived part of an audio file name.
const MaxNameRunes = 50

// AudioExt is the extension of every audio artifact.
const AudioExt = ".mp3"

// Artifact is an audio file on disk.
type Artifact struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Title restores a display title from the file name.
func (a Artifact) Title() string {
	return TitleFromFileName(a.Name)
}

// Artifacts is the directory of audio files, at most one per skill.
type Artifacts struct {
	dir string
}

// NewArtifacts creates the directory if needed.
func NewArtifacts(dir string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Artifacts{dir: dir}, nil
}

// Dir returns the artifact directory.
func (a *Artifacts) Dir() string { return a.dir }

// FileName derives the artifact file name for skill: the first
// MaxNameRunes runes with spaces and unsafe characters replaced by
// underscores.
func FileName(skill string) string {
	runes := []rune(strings.TrimSpace(skill))
	if len(runes) > MaxNameRunes {
		runes = runes[:MaxNameRunes]
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			runes[i] = '_'
		}
	}
	if len(runes) == 0 {
		return "untitled" + AudioExt
	}
	return string(runes) + AudioExt
}

// TitleFromFileName reverses the separator substitution of FileName and
// strips the extension.
func TitleFromFileName(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(name, AudioExt), "_", " ")
}

// Path returns the artifact path for skill.
func (a *Artifacts) Path(skill string) string {
	return filepath.Join(a.dir, FileName(skill))
}

// Exists reports whether an artifact for skill is present.
func (a *Artifacts) Exists(skill string) (bool, error) {
	_, err := os.Stat(a.Path(skill))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write stores audio for skill atomically, replacing any existing file.
func (a *Artifacts) Write(skill string, audio []byte) error {
	return docstore.WriteFileAtomic(a.Path(skill), audio, 0o644)
}

// List returns every audio artifact sorted by name.
func (a *Artifacts) List() ([]Artifact, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("read audio dir: %w", err)
	}

	var out []Artifact
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), AudioExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, Artifact{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	slices.SortFunc(out, func(x, y Artifact) int { return strings.Compare(x.Name, y.Name) })
	return out, nil
}
