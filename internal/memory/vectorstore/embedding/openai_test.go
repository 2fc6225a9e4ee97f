package embedding

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRejectsEmptyAPIKey(t *testing.T) {
	if _, err := New("", "", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New("sk-test", "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Model() != DefaultModel {
		t.Fatalf("expected default model %q, got %q", DefaultModel, p.Model())
	}
	if p.ID() != "openai" {
		t.Fatalf("expected id 'openai', got %q", p.ID())
	}
}

func TestEmbedBatchParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]},
				{"object": "embedding", "index": 1, "embedding": [0.4, 0.5, 0.6]}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	}))
	defer srv.Close()

	p, err := New("sk-test", srv.URL, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vecs, err := p.EmbedBatch(t.Context(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if len(vecs[0]) != 3 || vecs[0][0] != float32(0.1) {
		t.Fatalf("unexpected first vector: %v", vecs[0])
	}
}

func TestEmbedBatchEmptyInputReturnsNil(t *testing.T) {
	p, err := New("sk-test", "", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vecs, err := p.EmbedBatch(t.Context(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Fatalf("expected nil, got %v", vecs)
	}
}
