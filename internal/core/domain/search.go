package domain

import (
	"fmt"
	"math"
)

// QueryRequest is a similarity query against the vector index.
type QueryRequest struct {
	// Text is the query text. Used to derive an embedding when Embedding is nil.
	Text string

	// Embedding bypasses embedding derivation when set.
	Embedding []float32

	// NResults is the maximum number of results. Defaults to 5.
	NResults int

	// Where restricts results to exact metadata matches.
	Where map[string]any
}

// QueryResult is one ranked hit.
type QueryResult struct {
	// ChunkID identifies the stored chunk.
	ChunkID string `json:"chunk_id"`

	// Content is the stored chunk text.
	Content string `json:"content"`

	// Metadata is the flattened stored metadata.
	Metadata map[string]any `json:"metadata"`

	// Distance is the cosine distance (0 is identical).
	Distance float64 `json:"distance"`

	// Score is 1 - Distance.
	Score float64 `json:"score"`
}

// SourceURL returns the result's source URL.
func (r QueryResult) SourceURL() string {
	return MetadataString(r.Metadata, MetaSourceURL)
}

// PlatformURL returns the result's resolved platform link, if any.
func (r QueryResult) PlatformURL() string {
	return MetadataString(r.Metadata, MetaPlatformURL)
}

// Chunk rebuilds the chunk a result was stored from. The embedding is not
// part of a result and stays empty.
func (r QueryResult) Chunk() Chunk {
	c := Chunk{
		ID:          r.ChunkID,
		Content:     r.Content,
		SourceURL:   r.SourceURL(),
		Metadata:    r.Metadata,
		PlatformURL: r.PlatformURL(),
	}
	if idx, ok := toFloat(r.Metadata[MetaChunkIndex]); ok {
		c.Index = int(idx)
	}
	return c
}

// Citation is the set of links to show with an answer.
type Citation struct {
	// Category is the information category of the query, if any.
	Category string `json:"category,omitempty"`

	// Primary is the link to show first.
	Primary string `json:"primary_url"`

	// Secondary is an optional supporting link.
	Secondary string `json:"secondary_url,omitempty"`

	// Message is user-facing guidance naming the primary link.
	Message string `json:"message"`
}

// StoredRecord is a record fetched by ID or metadata filter.
type StoredRecord struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// CollectionInfo describes the vector collection.
type CollectionInfo struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Location string `json:"location"`
	Engine   string `json:"engine"`
}

// MatchesFilter reports whether meta satisfies every key of where by exact
// equality. Numbers compare by value regardless of their Go type.
func MatchesFilter(meta, where map[string]any) bool {
	for k, want := range where {
		got, ok := meta[k]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return math.Abs(fa-fb) < 1e-9
		}
		return false
	}
	if _, ok := toFloat(b); ok {
		return false
	}
	switch av := a.(type) {
	case string, bool, nil:
		return a == b
	default:
		return fmt.Sprint(av) == fmt.Sprint(b)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
