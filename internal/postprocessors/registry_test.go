package postprocessors

import (
	"testing"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
	"github.com/custodia-labs/fundlink/internal/postprocessors/chunker"
)

// registryMockChunker is a simple mock for testing registry functionality.
type registryMockChunker struct {
	name string
}

func (m *registryMockChunker) Name() string { return m.name }
func (m *registryMockChunker) Chunk(_ string, _ map[string]any) []domain.Chunk {
	return nil
}
func (m *registryMockChunker) ProcessDocuments(_ []domain.ProcessedDocument) []domain.Chunk {
	return nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if len(r.builders) != 0 {
		t.Errorf("expected empty builders, got %d", len(r.builders))
	}
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry()

	r.Register("test", func(cfg map[string]any) (driven.Chunker, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockChunker{name: name}, nil
	})

	c, err := r.Build("test", map[string]any{"name": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if c.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", c.Name())
	}
}

func TestRegistry_Build_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("unknown", nil)
	if err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := DefaultRegistry()

	names := r.Names()
	want := []string{"fixed_size", "paragraph", "semantic", "sentence"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, names[i])
		}
	}
}

func TestBuildChunker_WithConfig(t *testing.T) {
	cfg := map[string]any{
		"strategy":       "paragraph",
		"chunk_size":     int64(300),
		"chunk_overlap":  float64(30),
		"min_chunk_size": 10,
	}

	c, err := BuildChunker(DefaultRegistry(), cfg)
	if err != nil {
		t.Fatalf("BuildChunker failed: %v", err)
	}
	if c.Name() != "paragraph" {
		t.Errorf("expected paragraph chunker, got %q", c.Name())
	}

	chunks := c.Chunk("Short paragraph one here.\n\nShort paragraph two here.", nil)
	if len(chunks) != 1 {
		t.Errorf("expected both paragraphs packed into 1 chunk, got %d", len(chunks))
	}
}

func TestBuildChunker_UnknownStrategyFallsBack(t *testing.T) {
	c, err := BuildChunker(DefaultRegistry(), map[string]any{"strategy": "by-vibes"})
	if err != nil {
		t.Fatalf("expected graceful fallback, got %v", err)
	}
	if c.Name() != string(chunker.StrategySentence) {
		t.Errorf("expected sentence fallback, got %q", c.Name())
	}
}

func TestBuildChunker_WithNilConfig(t *testing.T) {
	c, err := BuildChunker(DefaultRegistry(), nil)
	if err != nil {
		t.Fatalf("BuildChunker with nil config failed: %v", err)
	}
	if c.Name() != "sentence" {
		t.Errorf("expected sentence, got %q", c.Name())
	}
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		key      string
		expected int
		ok       bool
	}{
		{"int value", map[string]any{"size": 100}, "size", 100, true},
		{"int64 value", map[string]any{"size": int64(200)}, "size", 200, true},
		{"float64 value", map[string]any{"size": float64(300)}, "size", 300, true},
		{"string value", map[string]any{"size": "400"}, "size", 0, false},
		{"missing key", map[string]any{"other": 100}, "size", 0, false},
		{"nil config", nil, "size", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := getIntFromConfig(tt.cfg, tt.key)
			if result != tt.expected || ok != tt.ok {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.expected, tt.ok, result, ok)
			}
		})
	}
}
