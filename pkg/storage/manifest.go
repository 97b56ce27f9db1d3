package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ManifestFileName is written into each club directory
const ManifestFileName = "manifest.json"

// Manifest lists where each kit file of a club came from
type Manifest struct {
	Club      string          `json:"club"`
	UpdatedAt time.Time       `json:"updated_at"`
	Files     []ManifestEntry `json:"files"`
}

// ManifestEntry describes one saved or failed kit file
type ManifestEntry struct {
	Index       int       `json:"index"`
	SourceURL   string    `json:"source_url"`
	File        string    `json:"file,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	Error       string    `json:"error,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// WriteManifest writes the club's manifest atomically, entries ordered by index
func (m *Manager) WriteManifest(manifest *Manifest) error {
	dir, err := m.ClubDir(manifest.Club)
	if err != nil {
		return err
	}

	sort.Slice(manifest.Files, func(i, j int) bool {
		return manifest.Files[i].Index < manifest.Files[j].Index
	})
	manifest.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	_, err = writeAtomic(filepath.Join(dir, ManifestFileName), func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads the manifest of a club directory
func LoadManifest(clubDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(clubDir, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}
