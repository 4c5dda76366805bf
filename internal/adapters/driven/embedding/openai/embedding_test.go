package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fundlink/internal/core/domain"
)

// echoHandler answers with one 2-d vector per input, [index, len(text)],
// listed in reverse order.
func echoHandler(t *testing.T, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"index":     i,
				"embedding": []float64{float64(i), float64(len(req.Input[i]))},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func newTestService(t *testing.T, handler http.Handler) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: srv.URL, Dimensions: 2})
	require.NoError(t, err)
	return s
}

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	s, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 1536, s.Dimensions())

	large, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, 256, large.Dimensions())

	ada, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-ada-002", Dimensions: 256})
	require.NoError(t, err)
	assert.Equal(t, 1536, ada.Dimensions(), "ada cannot be shortened")
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, echoHandler(t, &calls))

	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{0, 1}, {1, 2}, {2, 3}}, vecs)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedBatch_SplitsLargeBatches(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, echoHandler(t, &calls))

	texts := make([]string, MaxInputs+5)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	vecs, err := s.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vecs, len(texts))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []float32{4, float32(len(texts[MaxInputs+4]))}, vecs[MaxInputs+4])
}

func TestEmbed_Single(t *testing.T) {
	var calls atomic.Int32
	s := newTestService(t, echoHandler(t, &calls))

	vec, err := s.Embed(context.Background(), "nav")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 3}, vec)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"api error", `{"error":{"message":"invalid key","type":"auth"}}`, http.StatusUnauthorized, "invalid key"},
		{"status only", `{}`, http.StatusBadGateway, "status 502"},
		{"missing vector", `{"data":[{"index":0,"embedding":[1,2]}]}`, http.StatusOK, "input 1"},
		{"bad index", `{"data":[{"index":5,"embedding":[1,2]}]}`, http.StatusOK, "out of range"},
		{"not json", `<html>`, http.StatusOK, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEmbedBatch_RetriesThrottled(t *testing.T) {
	var calls atomic.Int32
	echo := echoHandler(t, &calls)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() == 0 {
			calls.Add(1)
			http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
			return
		}
		echo(w, r)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewEmbeddingService(Config{
		APIKey: "sk-test", BaseURL: srv.URL, Dimensions: 2,
		Retries: 2, RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	vecs, err := s.EmbedBatch(context.Background(), []string{"ab"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 2}}, vecs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedBatch_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	s, err := NewEmbeddingService(Config{
		APIKey: "k", BaseURL: srv.URL, Retries: 2, RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "status 503")
	assert.Equal(t, int32(3), calls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestEmbedBatch_Unreachable(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestPing(t *testing.T) {
	s := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	assert.NoError(t, s.Ping(context.Background()))

	bad := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	assert.ErrorContains(t, bad.Ping(context.Background()), "status 401")
	assert.NoError(t, bad.Close())
}
