// Package storage persists uploaded CVs to the save directory.
package storage

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

// DiskStore writes uploaded CV bytes under a single directory. Every file
// gets a ULID prefix so two concurrent requests carrying the same filename
// never overwrite each other.
type DiskStore struct {
	dir string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New constructs a DiskStore rooted at dir. The directory is created lazily
// on first save.
func New(dir string) *DiskStore {
	return &DiskStore{
		dir:     dir,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // Weak random is sufficient for ULID entropy.
	}
}

// Save writes data to a uniquely named file and returns the path written.
func (s *DiskStore) Save(_ domain.Context, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("save cv: mkdir %s: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, s.uniqueName(filename))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("save cv: write %s: %w", path, err)
	}
	slog.Debug("cv saved", slog.String("path", path), slog.Int("bytes", len(data)))
	return path, nil
}

// uniqueName prefixes the caller-chosen filename with a ULID, keeping the
// original name as a suffix for traceability. Path separators in the input
// are stripped so a crafted filename cannot escape the save directory.
func (s *DiskStore) uniqueName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "cv.pdf"
	}
	s.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), s.entropy)
	s.mu.Unlock()
	if err != nil {
		return fmt.Sprintf("%d_%s", time.Now().UnixNano(), base)
	}
	return id.String() + "_" + base
}
