package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
)

type embeddingServer struct {
	mu     sync.Mutex
	inputs []string
	status int
	dims   int
}

func (s *embeddingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		s.mu.Lock()
		s.inputs = append(s.inputs, req.Input...)
		s.mu.Unlock()

		if s.status != 0 {
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		vec := make([]float32, s.dims)
		for i := range vec {
			vec[i] = float32(len(req.Input[0]) + i)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": vec, "index": 0}},
		})
	}
}

func newCompatibleClient(t *testing.T, srv *embeddingServer, dims int) *EmbeddingClient {
	t.Helper()
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)
	return NewEmbeddingClient(context.Background(), &config.EmbeddingConfig{
		Provider:   "openai-compatible",
		Model:      "text-embedding-3-small",
		APIKey:     "test-key",
		BaseURL:    ts.URL + "/v1/",
		Dimensions: dims,
		Timeout:    5 * time.Second,
	})
}

func TestEmbeddingClient_NormalizesAndIsStable(t *testing.T) {
	srv := &embeddingServer{dims: 4}
	client := newCompatibleClient(t, srv, 4)

	first, err := client.Embed(context.Background(), "  line one\nline two \n")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := client.Embed(context.Background(), "line one line two")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if srv.inputs[0] != "line one line two" {
		t.Errorf("sent %q, want %q", srv.inputs[0], "line one line two")
	}
	if len(first) != 4 {
		t.Fatalf("len(vec) = %d, want 4", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("vec[%d] = %v vs %v, want identical vectors", i, first[i], second[i])
		}
	}
}

func TestEmbeddingClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		srv       *embeddingServer
		dims      int
		text      string
		wantKind  domain.ErrorKind
		wantCalls int
	}{
		{name: "empty text", srv: &embeddingServer{dims: 4}, dims: 4, text: " \n ", wantKind: domain.KindValidation, wantCalls: 0},
		{name: "rejected key", srv: &embeddingServer{status: http.StatusUnauthorized}, dims: 4, text: "joke", wantKind: domain.KindConfig, wantCalls: 1},
		{name: "server error", srv: &embeddingServer{status: http.StatusInternalServerError}, dims: 4, text: "joke", wantKind: domain.KindTransient, wantCalls: 1},
		{name: "dimension mismatch", srv: &embeddingServer{dims: 3}, dims: 4, text: "joke", wantKind: domain.KindMalformed, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newCompatibleClient(t, tt.srv, tt.dims)
			vec, err := client.Embed(context.Background(), tt.text)
			if err == nil {
				t.Fatalf("Embed() = %v, want error", vec)
			}
			if got := domain.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(err) = %q, want %q", got, tt.wantKind)
			}
			if len(tt.srv.inputs) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(tt.srv.inputs), tt.wantCalls)
			}
		})
	}
}

func TestEmbeddingClient_MissingKey(t *testing.T) {
	client := NewEmbeddingClient(context.Background(), &config.EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		APIKeyEnv:  "OPENAI_API_KEY",
		Dimensions: 1536,
	})
	_, err := client.Embed(context.Background(), "joke")
	if domain.KindOf(err) != domain.KindConfig {
		t.Errorf("KindOf(err) = %q, want %q", domain.KindOf(err), domain.KindConfig)
	}
	if client.Model() != "text-embedding-3-small" || client.Dimensions() != 1536 {
		t.Errorf("Model()/Dimensions() = %q/%d", client.Model(), client.Dimensions())
	}
}

func TestNormalizeEmbeddingText(t *testing.T) {
	tests := map[string]string{
		"a\nb":         "a b",
		"a\r\nb":       "a b",
		"a\rb":         "a b",
		"  padded  ":   "padded",
		"\n\n":         "",
		"kept  double": "kept  double",
	}
	for in, want := range tests {
		if got := NormalizeEmbeddingText(in); got != want {
			t.Errorf("NormalizeEmbeddingText(%q) = %q, want %q", in, got, want)
		}
		if got := NormalizeEmbeddingText(NormalizeEmbeddingText(in)); got != want {
			t.Errorf("NormalizeEmbeddingText not idempotent for %q: %q", in, got)
		}
	}
}
