package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
	"github.com/regwatch/regwatch/internal/sources"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []*domain.RunRecord
	finished  []*domain.RunRecord
	docs      []*domain.Document
	artifacts map[string][]byte
	statuses  map[int64]string
	listErr   error
	purgeErr  error
	purged    []int64
	prefixes  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		artifacts: map[string][]byte{},
		statuses:  map[int64]string{},
	}
}

func (f *fakeStore) CreateRun(_ context.Context, run *domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, run)
	return nil
}

func (f *fakeStore) FinishRun(_ context.Context, run *domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeStore) CountDocuments(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs), nil
}

func (f *fakeStore) ListDiscoveredSince(_ context.Context, since time.Time) ([]*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Document
	for _, doc := range f.docs {
		if !doc.DiscoveredAt.Before(since) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeStore) ReadArtifact(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.artifacts[path]
	if !ok {
		return nil, errors.New("artifact not found")
	}
	return content, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

func (f *fakeStore) LatestPerSource(_ context.Context, source string, limit int) ([]*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Document
	for _, doc := range f.docs {
		if doc.Source == source && len(out) < limit {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeStore) PurgeWithPageHashes(_ context.Context, ids []int64, hashPrefixes []string) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return 0, 0, f.purgeErr
	}
	f.purged = append(f.purged, ids...)
	f.prefixes = append(f.prefixes, hashPrefixes...)
	keep := f.docs[:0]
	for _, doc := range f.docs {
		remove := false
		for _, id := range ids {
			if doc.ID == id {
				remove = true
			}
		}
		if !remove {
			keep = append(keep, doc)
		}
	}
	f.docs = keep
	return int64(len(ids)), int64(len(hashPrefixes)), nil
}

// addDoc inserts a document as if a crawler stored it.
func (f *fakeStore) addDoc(doc *domain.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
}

type fakeCrawler struct {
	name  string
	crawl func(ctx context.Context, force bool) (int, error)
}

func (c *fakeCrawler) Name() string { return c.name }
func (c *fakeCrawler) Crawl(ctx context.Context, force bool) (int, error) {
	return c.crawl(ctx, force)
}

type fakeText struct{ text string }

func (f *fakeText) Text(_ context.Context, _ []byte) string { return f.text }

type fakeAnalyzer struct {
	mu         sync.Mutex
	summarized []int64
	classified []int64
	result     *domain.AnalysisResult
}

func (f *fakeAnalyzer) Summarize(_ context.Context, doc *domain.Document, _ string) *domain.AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized = append(f.summarized, doc.ID)
	return f.result
}

func (f *fakeAnalyzer) ClassifyDomain(_ context.Context, doc *domain.Document, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classified = append(f.classified, doc.ID)
	return "Taxation"
}

type fakeNotifier struct {
	mu      sync.Mutex
	subject string
	body    string
	calls   int
	err     error
}

func (f *fakeNotifier) Notify(subject, body string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.subject = subject
	f.body = body
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func contentDoc(id int64, source, ref string) *domain.Document {
	path := "/artifacts/" + ref + ".pdf"
	return &domain.Document{
		ID:              id,
		Source:          source,
		ReferenceNumber: ref,
		Title:           ref,
		Status:          domain.StatusNew,
		StoragePath:     &path,
		DiscoveredAt:    time.Now().UTC().Add(time.Second),
	}
}

func TestRunHappyPath(t *testing.T) {
	st := newFakeStore()
	doc := contentDoc(1, domain.SourceFBR, "SRO-1")
	st.artifacts[*doc.StoragePath] = []byte("%PDF")

	crawler := &fakeCrawler{name: "FBR", crawl: func(ctx context.Context, force bool) (int, error) {
		st.addDoc(doc)
		return 10, nil
	}}
	analyzer := &fakeAnalyzer{result: &domain.AnalysisResult{DocumentID: 1, Summary: "7. General Idea: x"}}
	notifier := &fakeNotifier{}

	o := New(st, []sources.Crawler{crawler}, &fakeText{text: "document text"}, analyzer, notifier, time.Minute, logger.NewNoOp())

	run, err := o.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q", run.Status)
	}
	if run.NewDocuments != 1 {
		t.Errorf("new documents = %d, want 1", run.NewDocuments)
	}
	if run.DocumentsFoundTotal != 1 {
		t.Errorf("total = %d, want 1", run.DocumentsFoundTotal)
	}
	if run.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
	if len(analyzer.summarized) != 1 || len(analyzer.classified) != 1 {
		t.Errorf("analysis calls = %d/%d, want 1/1", len(analyzer.summarized), len(analyzer.classified))
	}
	if st.statuses[1] != domain.StatusProcessed {
		t.Errorf("document status = %q, want processed", st.statuses[1])
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
	if !strings.Contains(notifier.subject, "1 new regulations (FBR:1)") {
		t.Errorf("unexpected subject %q", notifier.subject)
	}
}

func TestRunSourceFailureIsolated(t *testing.T) {
	st := newFakeStore()
	good := contentDoc(2, domain.SourceSECP, "CIRC-1")
	st.artifacts[*good.StoragePath] = []byte("%PDF")

	broken := &fakeCrawler{name: "FBR", crawl: func(context.Context, bool) (int, error) {
		return 0, errors.New("site down")
	}}
	working := &fakeCrawler{name: "SECP", crawl: func(ctx context.Context, force bool) (int, error) {
		st.addDoc(good)
		return 1, nil
	}}

	o := New(st, []sources.Crawler{broken, working}, &fakeText{text: "text"}, &fakeAnalyzer{}, &fakeNotifier{}, time.Minute, logger.NewNoOp())

	run, err := o.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q, one failing source must not fail the run", run.Status)
	}
	if run.NewDocuments != 1 {
		t.Errorf("new documents = %d, want 1", run.NewDocuments)
	}
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	st := newFakeStore()
	release := make(chan struct{})
	started := make(chan struct{})

	var startOnce sync.Once
	blocking := &fakeCrawler{name: "FBR", crawl: func(context.Context, bool) (int, error) {
		startOnce.Do(func() { close(started) })
		<-release
		return 0, nil
	}}

	o := New(st, []sources.Crawler{blocking}, nil, nil, nil, time.Minute, logger.NewNoOp())

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), false)
		done <- err
	}()

	<-started
	if _, err := o.Run(context.Background(), false); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// The gate must reopen once the run finishes.
	if _, err := o.Run(context.Background(), false); err != nil {
		t.Errorf("run after completion failed: %v", err)
	}
}

func TestRunFailsWhenNewDocumentQueryFails(t *testing.T) {
	st := newFakeStore()
	st.listErr = errors.New("db gone")

	crawler := &fakeCrawler{name: "FBR", crawl: func(context.Context, bool) (int, error) { return 0, nil }}
	o := New(st, []sources.Crawler{crawler}, nil, nil, nil, time.Minute, logger.NewNoOp())

	run, err := o.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected an error")
	}
	if run.Status != domain.RunStatusFailed {
		t.Errorf("status = %q, want failed", run.Status)
	}
	if run.ErrorMessage == nil || !strings.Contains(*run.ErrorMessage, "db gone") {
		t.Error("expected error message on the run record")
	}
	if len(st.finished) != 1 {
		t.Errorf("finished records = %d, want 1", len(st.finished))
	}
}

func TestRunNotifierFailureDoesNotFailRun(t *testing.T) {
	st := newFakeStore()
	doc := contentDoc(3, domain.SourcePCP, "JOB-1")
	st.artifacts[*doc.StoragePath] = []byte("%PDF")

	crawler := &fakeCrawler{name: "PCP", crawl: func(ctx context.Context, force bool) (int, error) {
		st.addDoc(doc)
		return 1, nil
	}}
	notifier := &fakeNotifier{err: errors.New("smtp refused")}

	o := New(st, []sources.Crawler{crawler}, &fakeText{text: "text"}, &fakeAnalyzer{}, notifier, time.Minute, logger.NewNoOp())

	run, err := o.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q", run.Status)
	}
}

func TestRunSkipsAnalysisForMetadataOnlyDocuments(t *testing.T) {
	st := newFakeStore()
	doc := &domain.Document{
		ID:              4,
		Source:          domain.SourceFBR,
		ReferenceNumber: "SRO-META",
		Status:          domain.StatusTrackedNoPDF,
		DiscoveredAt:    time.Now().UTC().Add(time.Second),
	}
	crawler := &fakeCrawler{name: "FBR", crawl: func(ctx context.Context, force bool) (int, error) {
		st.addDoc(doc)
		return 1, nil
	}}
	analyzer := &fakeAnalyzer{}
	notifier := &fakeNotifier{}

	o := New(st, []sources.Crawler{crawler}, &fakeText{text: "text"}, analyzer, notifier, time.Minute, logger.NewNoOp())

	if _, err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analyzer.summarized) != 0 {
		t.Error("metadata-only documents must not be analyzed")
	}
	// But they still appear in the digest.
	if !strings.Contains(notifier.body, "SRO-META") {
		t.Error("metadata-only document missing from digest")
	}
}

func TestSimulateRollsBackAndRuns(t *testing.T) {
	st := newFakeStore()
	st.addDoc(contentDoc(10, domain.SourceFBR, "SRO-A"))
	st.addDoc(contentDoc(11, domain.SourceSECP, "CIRC-B"))

	crawled := false
	crawler := &fakeCrawler{name: "FBR", crawl: func(_ context.Context, force bool) (int, error) {
		if !force {
			t.Error("simulate must force the crawl")
		}
		crawled = true
		return 0, nil
	}}
	o := New(st, []sources.Crawler{crawler}, nil, nil, nil, time.Minute, logger.NewNoOp())

	run, err := Simulate(context.Background(), st, o, 5, nil, logger.NewNoOp())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !crawled {
		t.Error("expected a run to be triggered")
	}
	if run.Status != domain.RunStatusSuccess {
		t.Errorf("status = %q", run.Status)
	}
	if len(st.purged) != 2 {
		t.Errorf("purged = %v, want both documents", st.purged)
	}
	for _, want := range []string{"FBR:", "SECP:", "PCP:"} {
		found := false
		for _, prefix := range st.prefixes {
			if prefix == want {
				found = true
			}
		}
		if !found {
			t.Errorf("page hashes not cleared for prefix %q", want)
		}
	}
}

func TestSimulateFailedRollbackDoesNotRun(t *testing.T) {
	st := newFakeStore()
	st.addDoc(contentDoc(12, domain.SourceFBR, "SRO-C"))
	st.purgeErr = errors.New("db gone")

	crawler := &fakeCrawler{name: "FBR", crawl: func(context.Context, bool) (int, error) {
		t.Error("no run must start when the rollback fails")
		return 0, nil
	}}
	o := New(st, []sources.Crawler{crawler}, nil, nil, nil, time.Minute, logger.NewNoOp())

	if _, err := Simulate(context.Background(), st, o, 5, nil, logger.NewNoOp()); err == nil {
		t.Fatal("expected rollback failure to surface")
	}
	// The failed transaction must leave no partial rollback state.
	if len(st.purged) != 0 || len(st.prefixes) != 0 {
		t.Errorf("partial rollback recorded: ids %v, prefixes %v", st.purged, st.prefixes)
	}
}
