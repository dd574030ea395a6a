package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest remembers which source files were indexed, so an unchanged file
// is not embedded again on the next run.
type Manifest struct {
	Collection string              `json:"collection"`
	Files      map[string]FileInfo `json:"files"`
}

type FileInfo struct {
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
	Chunks       int       `json:"chunks"`
	// Fingerprint of the chunking settings the file was indexed with.
	Fingerprint string `json:"fingerprint"`
}

// Fingerprint hashes the settings that shape the chunks of a source. A file
// indexed under another fingerprint is indexed again.
func Fingerprint(settings ...any) string {
	h := sha256.New()
	for _, s := range settings {
		fmt.Fprintf(h, "%#v\x00", s)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func loadManifest(path string) (*Manifest, error) {
	m := &Manifest{Files: make(map[string]FileInfo)}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(m); err != nil {
		return nil, err
	}
	if m.Files == nil {
		m.Files = make(map[string]FileInfo)
	}
	return m, nil
}

func (m *Manifest) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// unchanged reports whether info and fingerprint match what was recorded
// for key.
func (m *Manifest) unchanged(key string, info os.FileInfo, fingerprint string) bool {
	prev, ok := m.Files[key]
	return ok &&
		prev.LastModified.Equal(info.ModTime()) &&
		prev.Size == info.Size() &&
		prev.Fingerprint == fingerprint
}
