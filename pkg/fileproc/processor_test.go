package fileproc

import (
	"context"
	"fmt"
	"testing"

	"github.com/glassbox-ai/glassbox-workers/pkg/store"
)

type fakeFileStore struct {
	files      map[string]*store.FileRecord
	processing []string
	completed  map[string]string
	embeddings map[string][]float32
	failures   map[string]string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{
		files:      map[string]*store.FileRecord{},
		completed:  map[string]string{},
		embeddings: map[string][]float32{},
		failures:   map[string]string{},
	}
}

func (f *fakeFileStore) GetFile(_ context.Context, id string) (*store.FileRecord, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return file, nil
}

func (f *fakeFileStore) MarkFileProcessing(_ context.Context, id string) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeFileStore) CompleteFileExtraction(_ context.Context, id, text string, embedding []float32) error {
	f.completed[id] = text
	f.embeddings[id] = embedding
	return nil
}

func (f *fakeFileStore) FailFile(_ context.Context, id, message string) error {
	f.failures[id] = message
	return nil
}

type fakeDownloader struct {
	blobs map[string][]byte
	err   error
}

func (d *fakeDownloader) Download(_ context.Context, key string) ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	blob, ok := d.blobs[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return blob, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	return e.vector, e.err
}

func TestProcessTextFile(t *testing.T) {
	st := newFakeFileStore()
	st.files["f1"] = &store.FileRecord{
		ID: "f1", StorageKey: "files/org/f1/notes.txt",
		Filename: "notes.txt", ContentType: "text/plain",
	}
	blobs := &fakeDownloader{blobs: map[string][]byte{
		"files/org/f1/notes.txt": []byte("quarterly launch notes"),
	}}
	emb := &fakeEmbedder{vector: []float32{0.1, 0.2}}

	p := NewProcessor(st, blobs, emb, nil)
	if err := p.Process(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.processing) != 1 {
		t.Error("file must be marked processing first")
	}
	if st.completed["f1"] != "quarterly launch notes" {
		t.Errorf("extracted text wrong: %q", st.completed["f1"])
	}
	if len(st.embeddings["f1"]) != 2 {
		t.Errorf("embedding not stored: %v", st.embeddings["f1"])
	}
	if emb.calls != 1 {
		t.Errorf("expected one embed call, got %d", emb.calls)
	}
}

func TestProcessWithoutEmbeddingProvider(t *testing.T) {
	st := newFakeFileStore()
	st.files["f1"] = &store.FileRecord{
		ID: "f1", StorageKey: "k", Filename: "a.txt", ContentType: "text/plain",
	}
	blobs := &fakeDownloader{blobs: map[string][]byte{"k": []byte("text")}}
	emb := &fakeEmbedder{vector: nil}

	p := NewProcessor(st, blobs, emb, nil)
	if err := p.Process(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.completed["f1"] != "text" {
		t.Errorf("text must be stored even without embedding: %q", st.completed["f1"])
	}
	if st.embeddings["f1"] != nil {
		t.Error("expected nil embedding")
	}
}

func TestImageSkipsEmbedding(t *testing.T) {
	st := newFakeFileStore()
	st.files["f1"] = &store.FileRecord{
		ID: "f1", StorageKey: "k", Filename: "scan.png", ContentType: "image/png",
	}
	blobs := &fakeDownloader{blobs: map[string][]byte{"k": {0x89, 0x50}}}
	emb := &fakeEmbedder{vector: []float32{0.5}}

	p := NewProcessor(st, blobs, emb, nil)
	if err := p.Process(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if emb.calls != 0 {
		t.Error("empty extracted text must not be embedded")
	}
	if text, ok := st.completed["f1"]; !ok || text != "" {
		t.Errorf("image must complete with empty text, got %q (ok=%v)", text, ok)
	}
}

func TestDownloadFaultMarksFailedAndPropagates(t *testing.T) {
	st := newFakeFileStore()
	st.files["f1"] = &store.FileRecord{ID: "f1", StorageKey: "k", ContentType: "text/plain"}
	blobs := &fakeDownloader{err: fmt.Errorf("s3 unavailable")}

	p := NewProcessor(st, blobs, &fakeEmbedder{}, nil)
	err := p.Process(context.Background(), "f1")
	if err == nil {
		t.Fatal("fault must propagate for redelivery")
	}

	if st.failures["f1"] == "" {
		t.Error("failure must be recorded on the file record")
	}
	if _, ok := st.completed["f1"]; ok {
		t.Error("failed file must not be marked complete")
	}
}

func TestEmbeddingFaultMarksFailed(t *testing.T) {
	st := newFakeFileStore()
	st.files["f1"] = &store.FileRecord{ID: "f1", StorageKey: "k", ContentType: "text/plain"}
	blobs := &fakeDownloader{blobs: map[string][]byte{"k": []byte("text")}}
	emb := &fakeEmbedder{err: fmt.Errorf("rate limited")}

	p := NewProcessor(st, blobs, emb, nil)
	if err := p.Process(context.Background(), "f1"); err == nil {
		t.Fatal("embedding fault must propagate")
	}
	if st.failures["f1"] == "" {
		t.Error("failure must be recorded")
	}
}

func TestHandleJobAcksBadPayloads(t *testing.T) {
	p := NewProcessor(newFakeFileStore(), &fakeDownloader{}, &fakeEmbedder{}, nil)

	if err := p.HandleJob(context.Background(), "not json"); err != nil {
		t.Errorf("unparseable payload must be acknowledged: %v", err)
	}
	if err := p.HandleJob(context.Background(), `{"action":"process"}`); err != nil {
		t.Errorf("payload without file_id must be acknowledged: %v", err)
	}
}

func TestHandleJobProcesses(t *testing.T) {
	st := newFakeFileStore()
	st.files["f9"] = &store.FileRecord{ID: "f9", StorageKey: "k", ContentType: "text/plain"}
	blobs := &fakeDownloader{blobs: map[string][]byte{"k": []byte("content")}}

	p := NewProcessor(st, blobs, &fakeEmbedder{}, nil)
	if err := p.HandleJob(context.Background(), `{"file_id":"f9","action":"process"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.completed["f9"] != "content" {
		t.Errorf("job did not process the file: %q", st.completed["f9"])
	}
}
