package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// Manager lays kit files out under the output root, one directory per club
type Manager struct {
	outputDir string
	saved     atomic.Int64

	mu sync.Mutex
	// dirs maps a club name to its directory name; taken holds the
	// lower-cased directory names already handed out this run
	dirs  map[string]string
	taken map[string]string
}

// NewManager creates a storage manager rooted at outputDir, creating it if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{
		outputDir: outputDir,
		dirs:      make(map[string]string),
		taken:     make(map[string]string),
	}, nil
}

// invalidNameChars are stripped from club directory names so the layout is
// portable across filesystems.
const invalidNameChars = `<>:"/\|?*`

// SanitizeClubName turns a club name into a safe directory name. Characters
// invalid in file names are removed and leading or trailing dots and spaces
// are trimmed. A name with nothing left becomes "_".
func SanitizeClubName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(invalidNameChars, r) {
			return -1
		}
		return r
	}, name)

	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

// DirName returns the directory name of a club for this run. Clubs whose
// sanitized names coincide, ignoring case, get a numbered suffix in the
// order they are first seen: "VeloClub", "VeloClub (2)".
func (m *Manager) DirName(club string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name, ok := m.dirs[club]; ok {
		return name
	}

	base := SanitizeClubName(club)
	name := base
	for n := 2; ; n++ {
		owner, used := m.taken[strings.ToLower(name)]
		if !used || owner == club {
			break
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}

	m.dirs[club] = name
	m.taken[strings.ToLower(name)] = club
	return name
}

// ClubDir returns the directory for a club, creating it if it does not exist.
// Calling it again for the same club is not an error.
func (m *Manager) ClubDir(club string) (string, error) {
	dir := filepath.Join(m.outputDir, m.DirName(club))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create club directory: %w", err)
	}
	return dir, nil
}

// KitFileName returns the file name for the index-th kit image of a record
func KitFileName(index int, ext string) string {
	return strconv.Itoa(index) + ext
}

// SaveKitFile streams r into <club dir>/<index><ext>. The data is written to
// a temporary file in the same directory and renamed into place, so the final
// path never holds a partial file. An existing file is replaced.
func (m *Manager) SaveKitFile(club string, index int, ext string, r io.Reader) (string, int64, error) {
	dir, err := m.ClubDir(club)
	if err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, KitFileName(index, ext))

	size, err := writeAtomic(path, func(w io.Writer) (int64, error) {
		return io.Copy(w, r)
	})
	if err != nil {
		return "", 0, err
	}

	m.saved.Add(1)
	return path, size, nil
}

func writeAtomic(path string, write func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := write(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to write file data: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to sync file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return size, nil
}

// OutputDir returns the output root
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// SavedCount returns the number of kit files saved by this manager
func (m *Manager) SavedCount() int {
	return int(m.saved.Load())
}
