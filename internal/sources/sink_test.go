package sources

import (
	"context"
	"sync"

	"github.com/regwatch/regwatch/internal/domain"
)

// memSink collects discovered documents in memory.
type memSink struct {
	mu       sync.Mutex
	existing map[string]bool
	saved    []*domain.Document
	metaOnly []*domain.Document
	content  map[string][]byte
}

func newMemSink() *memSink {
	return &memSink{
		existing: map[string]bool{},
		content:  map[string][]byte{},
	}
}

func (s *memSink) Exists(_ context.Context, canonicalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[canonicalID], nil
}

func (s *memSink) UpsertWithContent(_ context.Context, doc *domain.Document, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing[doc.CanonicalID] = true
	s.saved = append(s.saved, doc)
	s.content[doc.CanonicalID] = content
	return nil
}

func (s *memSink) UpsertMetadataOnly(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing[doc.CanonicalID] = true
	s.metaOnly = append(s.metaOnly, doc)
	return nil
}

// memHashStore is an in-memory changedetect.Store.
type memHashStore struct {
	mu     sync.Mutex
	hashes map[string]string
}

func newMemHashStore() *memHashStore {
	return &memHashStore{hashes: map[string]string{}}
}

func (s *memHashStore) GetHash(_ context.Context, pageKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashes[pageKey], nil
}

func (s *memHashStore) UpsertHash(_ context.Context, pageKey, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[pageKey] = digest
	return nil
}
