package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// metaCreatedAt is the reserved metadata key durable backends use to persist
// document creation time. It is stripped from Metadata on read.
const metaCreatedAt = "created_at"

// Document is the storage shape for an embedded document.
type Document struct {
	// ID is the unique identifier within a collection.
	// Generated (UUID v4) by Upsert when empty.
	ID string

	// Content is the document text.
	Content string

	// Embedding is the document vector. Computed by the store when empty.
	Embedding []float32

	// Metadata holds string key-value pairs used by exact-match filters.
	// The keys "id", "content" and "created_at" are reserved.
	Metadata map[string]string

	// CreatedAt is set on first insert and never changes afterwards.
	CreatedAt time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document Document

	// Score is the cosine similarity to the query vector (higher is closer).
	Score float32
}

// BatchFailure reports one skipped document from a batch operation.
type BatchFailure struct {
	// Index is the document's position in the submitted batch.
	Index int

	// ID is the document ID, when one was assigned before the failure.
	ID string

	// Err is the per-document cause.
	Err error
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func encodeCreatedAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseCreatedAt(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// rankResults applies the shared ordering contract to raw backend results:
// drop everything below minScore, sort by score descending with most recent
// CreatedAt breaking ties, and truncate to k. All backends funnel query
// output through here so ordering is identical across them.
func rankResults(results []SearchResult, minScore float32, k int) []SearchResult {
	ranked := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Document.CreatedAt.After(ranked[j].Document.CreatedAt)
	})
	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// sortDocuments orders List output by CreatedAt ascending, ID ascending.
func sortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

// normalizeDocument applies write-time validation and assigns an ID.
func normalizeDocument(doc Document, vectorSize int) (Document, error) {
	if len(strings.TrimSpace(doc.Content)) < MinContentLength {
		return doc, fmt.Errorf("%w: content shorter than %d characters", ErrValidation, MinContentLength)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if len(doc.Embedding) > 0 && len(doc.Embedding) != vectorSize {
		return doc, fmt.Errorf("%w: embedding dimension %d, want %d",
			ErrValidation, len(doc.Embedding), vectorSize)
	}
	return doc, nil
}

// embedPendingDocs fills in embeddings for the prepared batch entries that
// lack one, using a single provider call. When that call fails every pending
// entry is failed individually so the rest of the batch can still be written.
func embedPendingDocs(ctx context.Context, embedder Embedder, prepared []Document, ok []bool, failures *[]BatchFailure) {
	var pendingIdx []int
	var pendingTexts []string
	for i := range prepared {
		if ok[i] && len(prepared[i].Embedding) == 0 {
			pendingIdx = append(pendingIdx, i)
			pendingTexts = append(pendingTexts, prepared[i].Content)
		}
	}
	if len(pendingIdx) == 0 {
		return
	}

	vectors, err := embedder.EmbedDocuments(ctx, pendingTexts)
	if err == nil && len(vectors) != len(pendingTexts) {
		err = fmt.Errorf("provider returned %d embeddings for %d texts", len(vectors), len(pendingTexts))
	}
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		for _, i := range pendingIdx {
			ok[i] = false
			*failures = append(*failures, BatchFailure{Index: i, ID: prepared[i].ID, Err: wrapped})
		}
		return
	}
	for n, i := range pendingIdx {
		prepared[i].Embedding = vectors[n]
	}
}

// embedSingle computes the embedding for one document's content.
func embedSingle(ctx context.Context, embedder Embedder, content string) ([]float32, error) {
	vectors, err := embedder.EmbedDocuments(ctx, []string{content})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned no embedding", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}
