package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("garybot.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.local/share/garybot/vectorstore"
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.local/share/garybot/vectorstore"
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: storage path is required", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go, an embeddable vector
// database that persists documents and their vectors as gob files. Restarts
// reload the full corpus without re-embedding anything.
//
// chromem-go has no enumeration API, so membership is tracked in a journal
// (see catalog) that List, Delete and CreatedAt continuity are built on.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	shared   SharedConfig
	logger   *zap.Logger
	catalog  *catalog

	// writeMu serializes mutations so catalog and database stay aligned
	// and same-ID writes are last-writer-wins.
	writeMu sync.Mutex
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore opens (or creates) a persistent store at the configured
// path. If the store was built with a different embedding model than
// shared.Model, it refuses to open with ErrModelMismatch.
func NewChromemStore(config ChromemConfig, shared SharedConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	shared.ApplyDefaults()
	if err := shared.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	expandedPath, err := expandStorePath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expandedPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	cat, err := openCatalog(expandedPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	if shared.Model != "" {
		switch existing := cat.modelName(); existing {
		case "":
			if err := cat.setModel(shared.Model); err != nil {
				cat.close()
				return nil, fmt.Errorf("recording embedding model: %w", err)
			}
		case shared.Model:
		default:
			cat.close()
			return nil, fmt.Errorf("%w: store built with %q, configured %q",
				ErrModelMismatch, existing, shared.Model)
		}
	}

	store := &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		shared:   shared,
		logger:   logger,
		catalog:  cat,
	}

	logger.Info("chromem store initialized",
		zap.String("path", expandedPath),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", shared.VectorSize),
		zap.String("model", shared.Model),
	)

	return store, nil
}

// expandStorePath expands ~ to home directory.
func expandStorePath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc adapts the Embedder to chromem's callback type.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

func (s *ChromemStore) getOrCreateCollection(name string) (*chromem.Collection, error) {
	collection, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}
	return collection, nil
}

// writeDocument persists one prepared document. Caller holds writeMu.
// CreatedAt continuity across upserts comes from the catalog, which is
// journaled before the database write (see catalog for the crash ordering).
func (s *ChromemStore) writeDocument(ctx context.Context, collection string, doc Document) (string, error) {
	if len(doc.Embedding) != s.shared.VectorSize {
		return "", fmt.Errorf("%w: embedding dimension %d, want %d",
			ErrValidation, len(doc.Embedding), s.shared.VectorSize)
	}

	if existing, found := s.catalog.createdAt(collection, doc.ID); found {
		doc.CreatedAt = existing
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = timeNow().UTC()
	} else {
		doc.CreatedAt = doc.CreatedAt.UTC()
	}

	col, err := s.getOrCreateCollection(collection)
	if err != nil {
		return "", err
	}

	meta := cloneMetadata(doc.Metadata)
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[metaCreatedAt] = encodeCreatedAt(doc.CreatedAt)

	if err := s.catalog.recordUpsert(collection, doc.ID, doc.CreatedAt); err != nil {
		return "", err
	}
	err = col.AddDocuments(ctx, []chromem.Document{{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  meta,
		Embedding: doc.Embedding,
	}}, 1)
	if err != nil {
		return "", fmt.Errorf("adding document: %w", err)
	}
	return doc.ID, nil
}

// Upsert validates, embeds if necessary, and stores a document.
func (s *ChromemStore) Upsert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return "", err
	}
	doc, err := normalizeDocument(doc, s.shared.VectorSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if len(doc.Embedding) == 0 {
		vector, err := embedSingle(ctx, s.embedder, doc.Content)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		doc.Embedding = vector
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id, err := s.writeDocument(ctx, collection, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted document",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	return id, nil
}

// UpsertBatch stores many documents with per-document failure reporting.
func (s *ChromemStore) UpsertBatch(ctx context.Context, collection string, docs []Document) ([]string, []BatchFailure, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpsertBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("document_count", len(docs)),
	)

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

	embedPendingDocs(ctx, s.embedder, prepared, ok, &failures)

	s.writeMu.Lock()
	ids := make([]string, 0, len(docs))
	for i := range docs {
		if !ok[i] {
			continue
		}
		id, err := s.writeDocument(ctx, collection, prepared[i])
		if err != nil {
			failures = append(failures, BatchFailure{Index: i, ID: prepared[i].ID, Err: err})
			continue
		}
		ids = append(ids, id)
	}
	s.writeMu.Unlock()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })

	span.SetAttributes(
		attribute.Int("documents_added", len(ids)),
		attribute.Int("documents_failed", len(failures)),
	)
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted batch",
		zap.String("collection", collection),
		zap.Int("added", len(ids)),
		zap.Int("failed", len(failures)),
	)
	return ids, failures, nil
}

// Get returns a stored document including its embedding.
func (s *ChromemStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Get")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty document id", ErrValidation)
	}

	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cd, err := col.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	doc := documentFromChromem(cd)
	return &doc, nil
}

// Delete removes a document. Deleting an absent ID returns false, nil.
func (s *ChromemStore) Delete(ctx context.Context, collection, id string) (bool, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return false, err
	}
	if id == "" {
		return false, fmt.Errorf("%w: empty document id", ErrValidation)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return false, nil
	}
	if _, err := col.GetByID(ctx, id); err != nil {
		return false, nil
	}
	if err := s.catalog.recordDelete(collection, id); err != nil {
		return false, err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return false, fmt.Errorf("deleting document: %w", err)
	}

	s.logger.Debug("deleted document",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	return true, nil
}

// DeleteWhere removes every document matching the filter.
func (s *ChromemStore) DeleteWhere(ctx context.Context, collection string, filter Filter) (int, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteWhere")
	defer span.End()

	docs, err := s.List(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return 0, nil
	}
	removed := 0
	for _, doc := range docs {
		if err := s.catalog.recordDelete(collection, doc.ID); err != nil {
			return removed, err
		}
		if err := col.Delete(ctx, nil, nil, doc.ID); err != nil {
			return removed, fmt.Errorf("deleting document %s: %w", doc.ID, err)
		}
		removed++
	}

	span.SetAttributes(attribute.Int("documents_removed", removed))
	s.logger.Debug("deleted documents by filter",
		zap.String("collection", collection),
		zap.Int("removed", removed),
	)
	return removed, nil
}

// Query returns up to k documents similar to the vector, filtered, gated by
// the configured minimum similarity and tie-broken by recency.
func (s *ChromemStore) Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("k", k),
	)

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

	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return []SearchResult{}, nil
	}
	docCount := col.Count()
	if docCount == 0 {
		return []SearchResult{}, nil
	}

	// Over-fetch so threshold gating and recency tie-breaks operate on the
	// full candidate neighborhood, not a pre-truncated one.
	fetch := k * 2
	if fetch > docCount {
		fetch = docCount
	}

	results, err := col.QueryEmbedding(ctx, vector, fetch, map[string]string(filter), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: documentFromChromem(chromem.Document{
				ID:        r.ID,
				Content:   r.Content,
				Metadata:  r.Metadata,
				Embedding: r.Embedding,
			}),
			Score: r.Similarity,
		}
	}
	ranked := rankResults(searchResults, s.shared.MinSimilarity, k)

	span.SetAttributes(attribute.Int("results_count", len(ranked)))
	span.SetStatus(codes.Ok, "success")
	return ranked, nil
}

// List returns all documents matching the filter, oldest first.
func (s *ChromemStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.List")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	entries := s.catalog.entries(collection)
	docs := make([]Document, 0, len(entries))
	if len(entries) == 0 {
		return docs, nil
	}
	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return docs, nil
	}

	for id := range entries {
		cd, err := col.GetByID(ctx, id)
		if err != nil {
			s.catalog.dropMissing(collection, id)
			continue
		}
		doc := documentFromChromem(cd)
		if !filter.Matches(doc.Metadata) {
			continue
		}
		docs = append(docs, doc)
	}
	sortDocuments(docs)

	span.SetAttributes(attribute.Int("results_count", len(docs)))
	return docs, nil
}

// Count returns the number of documents in the collection.
func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}
	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return 0, nil
	}
	return col.Count(), nil
}

// Close releases the membership catalog. chromem-go persists eagerly and has
// no close of its own.
func (s *ChromemStore) Close() error {
	return s.catalog.close()
}

func documentFromChromem(cd chromem.Document) Document {
	meta := cloneMetadata(cd.Metadata)
	createdAt := parseCreatedAt(meta[metaCreatedAt])
	delete(meta, metaCreatedAt)
	return Document{
		ID:        cd.ID,
		Content:   cd.Content,
		Embedding: cd.Embedding,
		Metadata:  meta,
		CreatedAt: createdAt,
	}
}
