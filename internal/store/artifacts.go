package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// unsafeRefChars matches characters that must not appear in filenames.
var unsafeRefChars = regexp.MustCompile(`[^\w\-]`)

// artifactDirPerm is the mode for the artifact directory.
const artifactDirPerm = 0o755

// ArtifactStore persists document binaries on local disk under a stable,
// derivable path. Re-fetching the same canonical identity overwrites the
// existing artifact rather than creating a second one.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates the artifact directory if needed.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	if err := os.MkdirAll(dir, artifactDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &ArtifactStore{dir: dir}, nil
}

// Path returns the stable artifact path for (source, reference, date).
// The reference is sanitized; a missing date uses the NODATE sentinel so
// the path stays derivable from the same inputs as the canonical ID.
func (s *ArtifactStore) Path(source, referenceNumber string, date *time.Time) string {
	safeRef := unsafeRefChars.ReplaceAllString(referenceNumber, "_")
	dateStr := "NODATE"
	if date != nil {
		dateStr = date.Format("2006-01-02")
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.pdf", source, safeRef, dateStr))
}

// Write stores content at the stable path, overwriting any previous
// artifact for the same identity.
func (s *ArtifactStore) Write(source, referenceNumber string, date *time.Time, content []byte) (string, error) {
	path := s.Path(source, referenceNumber, date)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

// Read loads a stored artifact.
func (s *ArtifactStore) Read(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return content, nil
}

// Dir returns the artifact directory.
func (s *ArtifactStore) Dir() string {
	return s.dir
}
