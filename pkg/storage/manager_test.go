package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeClubName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme CC", "Acme CC"},
		{"A/B Wheelers", "AB Wheelers"},
		{`Team "Fast": Racing?`, "Team Fast Racing"},
		{"  ..Hidden..  ", "Hidden"},
		{"Tab\tClub", "TabClub"},
		{"///", "_"},
		{"Vélo Club Café", "Vélo Club Café"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeClubName(tt.in))
		})
	}
}

func TestSaveKitFile(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(filepath.Join(root, "kit"))
	require.NoError(t, err)

	path, size, err := m.SaveKitFile("Acme CC", 0, ".jpg", strings.NewReader("front"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "kit", "Acme CC", "0.jpg"), path)
	assert.Equal(t, int64(5), size)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "front", string(data))
	assert.Equal(t, 1, m.SavedCount())
}

func TestSaveKitFileTwiceIsIdempotent(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, body := range []string{"first", "second"} {
		_, _, err := m.SaveKitFile("Acme CC", 1, ".png", strings.NewReader(body))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(filepath.Join(m.OutputDir(), "Acme CC", "1.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n > 0 {
		f.n--
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func TestSaveKitFileFailureLeavesNoFile(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, _, err = m.SaveKitFile("Acme CC", 0, ".jpg", &failingReader{n: 2})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(m.OutputDir(), "Acme CC"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no final or temporary file should remain")
	assert.Equal(t, 0, m.SavedCount())
}

func TestClubDirIdempotent(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	first, err := m.ClubDir("Acme CC")
	require.NoError(t, err)
	second, err := m.ClubDir("Acme CC")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDirNameSuffixesCollisions(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "VeloClub", m.DirName("Velo/Club"))
	assert.Equal(t, "VeloClub (2)", m.DirName("VeloClub"))
	assert.Equal(t, "veloclub (3)", m.DirName("veloclub"))
	assert.Equal(t, "VeloClub (4)", m.DirName("Velo:Club"))

	// a club keeps the name it was given first
	assert.Equal(t, "VeloClub", m.DirName("Velo/Club"))
	dir, err := m.ClubDir("VeloClub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(m.OutputDir(), "VeloClub (2)"), dir)
}

func TestManifestRoundTrip(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	err = m.WriteManifest(&Manifest{
		Club: "Acme CC",
		Files: []ManifestEntry{
			{Index: 1, SourceURL: "https://example.com/b.png", File: "1.png", Size: 3},
			{Index: 0, SourceURL: "https://example.com/a.jpg", File: "0.jpg", Size: 5},
		},
	})
	require.NoError(t, err)

	loaded, err := LoadManifest(filepath.Join(m.OutputDir(), "Acme CC"))
	require.NoError(t, err)
	require.Len(t, loaded.Files, 2)
	assert.Equal(t, 0, loaded.Files[0].Index)
	assert.Equal(t, "1.png", loaded.Files[1].File)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	assert.Error(t, err)
}
