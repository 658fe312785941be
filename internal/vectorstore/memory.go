package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore is an ephemeral Store for tests and single-run tools. It keeps
// documents in maps per collection and ranks queries by exhaustive cosine
// similarity, which stays fast at the corpus sizes this system handles.
type MemoryStore struct {
	embedder Embedder
	shared   SharedConfig
	logger   *zap.Logger

	mu    sync.RWMutex
	colls map[string]map[string]Document
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(shared SharedConfig, embedder Embedder, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	shared.ApplyDefaults()
	return &MemoryStore{
		embedder: embedder,
		shared:   shared,
		logger:   logger,
		colls:    make(map[string]map[string]Document),
	}
}

// writeLocked stores one prepared document. Caller holds mu.
func (s *MemoryStore) writeLocked(collection string, doc Document) (string, error) {
	if len(doc.Embedding) != s.shared.VectorSize {
		return "", fmt.Errorf("%w: embedding dimension %d, want %d",
			ErrValidation, len(doc.Embedding), s.shared.VectorSize)
	}

	coll := s.colls[collection]
	if coll == nil {
		coll = make(map[string]Document)
		s.colls[collection] = coll
	}
	if existing, found := coll[doc.ID]; found {
		doc.CreatedAt = existing.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = timeNow().UTC()
	} else {
		doc.CreatedAt = doc.CreatedAt.UTC()
	}

	doc.Metadata = cloneMetadata(doc.Metadata)
	doc.Embedding = cloneVector(doc.Embedding)
	coll[doc.ID] = doc
	return doc.ID, nil
}

// Upsert validates, embeds if necessary, and stores a document.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return "", err
	}
	doc, err := normalizeDocument(doc, s.shared.VectorSize)
	if err != nil {
		return "", err
	}
	if len(doc.Embedding) == 0 {
		if s.embedder == nil {
			return "", fmt.Errorf("%w: no embedder configured", ErrInvalidConfig)
		}
		vector, err := embedSingle(ctx, s.embedder, doc.Content)
		if err != nil {
			return "", err
		}
		doc.Embedding = vector
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(collection, doc)
}

// UpsertBatch stores many documents with per-document failure reporting.
func (s *MemoryStore) UpsertBatch(ctx context.Context, collection string, docs []Document) ([]string, []BatchFailure, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, nil, err
	}
	if len(docs) == 0 {
		return nil, nil, nil
	}

	prepared := make([]Document, len(docs))
	ok := make([]bool, len(docs))
	var failures []BatchFailure
	for i, doc := range docs {
		d, err := normalizeDocument(doc, s.shared.VectorSize)
		if err != nil {
			failures = append(failures, BatchFailure{Index: i, ID: doc.ID, Err: err})
			continue
		}
		prepared[i] = d
		ok[i] = true
	}

	if s.embedder != nil {
		embedPendingDocs(ctx, s.embedder, prepared, ok, &failures)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(docs))
	for i := range docs {
		if !ok[i] {
			continue
		}
		id, err := s.writeLocked(collection, prepared[i])
		if err != nil {
			failures = append(failures, BatchFailure{Index: i, ID: prepared[i].ID, Err: err})
			continue
		}
		ids = append(ids, id)
	}
	return ids, failures, nil
}

// Get returns a stored document including its embedding.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty document id", ErrValidation)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, found := s.colls[collection][id]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := doc
	out.Metadata = cloneMetadata(doc.Metadata)
	out.Embedding = cloneVector(doc.Embedding)
	return &out, nil
}

// Delete removes a document. Deleting an absent ID returns false, nil.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) (bool, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return false, err
	}
	if id == "" {
		return false, fmt.Errorf("%w: empty document id", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.colls[collection]
	if _, found := coll[id]; !found {
		return false, nil
	}
	delete(coll, id)
	return true, nil
}

// DeleteWhere removes every document matching the filter.
func (s *MemoryStore) DeleteWhere(ctx context.Context, collection string, filter Filter) (int, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, doc := range s.colls[collection] {
		if filter.Matches(doc.Metadata) {
			delete(s.colls[collection], id)
			removed++
		}
	}
	return removed, nil
}

// Query ranks the filtered collection by cosine similarity to the vector.
func (s *MemoryStore) Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]SearchResult, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrValidation, k)
	}
	if len(vector) != s.shared.VectorSize {
		return nil, fmt.Errorf("%w: query vector dimension %d, want %d",
			ErrValidation, len(vector), s.shared.VectorSize)
	}

	s.mu.RLock()
	results := make([]SearchResult, 0, len(s.colls[collection]))
	for _, doc := range s.colls[collection] {
		if !filter.Matches(doc.Metadata) {
			continue
		}
		out := doc
		out.Metadata = cloneMetadata(doc.Metadata)
		out.Embedding = cloneVector(doc.Embedding)
		results = append(results, SearchResult{
			Document: out,
			Score:    cosineSimilarity(vector, doc.Embedding),
		})
	}
	s.mu.RUnlock()

	return rankResults(results, s.shared.MinSimilarity, k), nil
}

// List returns all documents matching the filter, oldest first.
func (s *MemoryStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.colls[collection]))
	for _, doc := range s.colls[collection] {
		if !filter.Matches(doc.Metadata) {
			continue
		}
		out := doc
		out.Metadata = cloneMetadata(doc.Metadata)
		out.Embedding = cloneVector(doc.Embedding)
		docs = append(docs, out)
	}
	sortDocuments(docs)
	return docs, nil
}

// Count returns the number of documents in the collection.
func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[collection]), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
