package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// qdrantTracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("garybot.vectorstore.qdrant")

const (
	// qdrantScrollPage is the page size used when enumerating a collection.
	qdrantScrollPage = 1024

	// circuitBreakerThreshold opens the breaker after this many consecutive
	// transient failures; it resets after circuitBreakerCooldown.
	circuitBreakerThreshold = 5
	circuitBreakerCooldown  = 30 * time.Second
)

// QdrantConfig holds configuration for the external Qdrant backend.
type QdrantConfig struct {
	// Host of the Qdrant gRPC endpoint. Default: "localhost".
	Host string `koanf:"host"`

	// Port of the Qdrant gRPC endpoint. Default: 6334.
	Port int `koanf:"port"`

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool `koanf:"use_tls"`

	// MaxRetries for transient failures. Default: 3.
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the initial backoff, doubled per attempt. Default: 1s.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MaxMessageSize caps gRPC send/receive sizes. Default: 50MB.
	MaxMessageSize int `koanf:"max_message_size"`
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c *QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be within 1-65535", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// isTransientGRPCError reports whether an error should be retried.
func isTransientGRPCError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func isNotFoundGRPCError(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// QdrantStore implements Store against an external Qdrant instance over its
// native gRPC transport.
//
// Qdrant point IDs must be UUIDs, so the document ID maps to a deterministic
// point UUID (the ID itself when it already is one, a SHA1-derived UUID
// otherwise) and the original ID is preserved in the payload. The mapping is
// stable, which is what gives Upsert its replace-on-same-ID semantics.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	shared   SharedConfig
	logger   *zap.Logger

	// collections caches which collections have been ensured.
	collections sync.Map

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore connects to Qdrant and verifies the connection with a
// health check.
func NewQdrantStore(config QdrantConfig, shared SharedConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
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

	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext, insecure for production")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	store := &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		shared:   shared,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	logger.Info("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Bool("use_tls", config.UseTLS),
		zap.Int("vector_size", shared.VectorSize),
	)
	return store, nil
}

// retryOperation retries transient failures with exponential backoff behind a
// circuit breaker.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}

		if s.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open", operationName)
		}
		if !isTransientGRPCError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}
		s.recordFailure()

		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantStore) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantStore) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantStore) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	if s.circuitBreaker.failures < circuitBreakerThreshold {
		return false
	}
	if time.Since(s.circuitBreaker.lastFail) > circuitBreakerCooldown {
		s.circuitBreaker.failures = 0
		return false
	}
	return true
}

// ensureCollection creates the collection on first use.
func (s *QdrantStore) ensureCollection(ctx context.Context, name string) error {
	if _, cached := s.collections.Load(name); cached {
		return nil
	}

	err := s.retryOperation(ctx, "ensure_collection", func() error {
		_, err := s.client.GetCollectionInfo(ctx, name)
		if err == nil {
			return nil
		}
		if !isNotFoundGRPCError(err) {
			return err
		}
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.shared.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("ensuring collection %s: %w", name, err)
	}

	s.collections.Store(name, true)
	return nil
}

// pointID maps a document ID to a stable Qdrant point UUID.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func payloadFromDocument(doc Document) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(doc.Metadata)+3)
	payload["id"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: doc.ID}}
	payload["content"] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: doc.Content}}
	payload[metaCreatedAt] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: encodeCreatedAt(doc.CreatedAt)}}
	for k, v := range doc.Metadata {
		payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	return payload
}

func documentFromPayload(payload map[string]*qdrant.Value, vector []float32) Document {
	doc := Document{Embedding: vector, Metadata: make(map[string]string)}
	for k, v := range payload {
		sv, ok := v.Kind.(*qdrant.Value_StringValue)
		if !ok {
			continue
		}
		switch k {
		case "id":
			doc.ID = sv.StringValue
		case "content":
			doc.Content = sv.StringValue
		case metaCreatedAt:
			doc.CreatedAt = parseCreatedAt(sv.StringValue)
		default:
			doc.Metadata[k] = sv.StringValue
		}
	}
	return doc
}

func buildQdrantFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: value},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

// getPoint fetches one point by document ID, or nil when absent.
func (s *QdrantStore) getPoint(ctx context.Context, collection, id string) (*qdrant.RetrievedPoint, error) {
	var points []*qdrant.RetrievedPoint
	err := s.retryOperation(ctx, "get", func() error {
		res, err := s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: collection,
			Ids:            []*qdrant.PointId{pointID(id)},
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			if isNotFoundGRPCError(err) {
				res = nil
				err = nil
			} else {
				return err
			}
		}
		points = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	return points[0], nil
}

// Upsert validates, embeds if necessary, and stores a document.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, doc Document) (string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Upsert")
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

	if err := s.ensureCollection(ctx, collection); err != nil {
		span.RecordError(err)
		return "", err
	}

	// CreatedAt continuity on replace.
	if existing, err := s.getPoint(ctx, collection, doc.ID); err != nil {
		span.RecordError(err)
		return "", err
	} else if existing != nil {
		prev := documentFromPayload(existing.Payload, nil)
		doc.CreatedAt = prev.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = timeNow().UTC()
	} else {
		doc.CreatedAt = doc.CreatedAt.UTC()
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points: []*qdrant.PointStruct{{
				Id:      pointID(doc.ID),
				Vectors: qdrant.NewVectors(doc.Embedding...),
				Payload: payloadFromDocument(doc),
			}},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("upserting point to collection %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("upserted document",
		zap.String("collection", collection),
		zap.String("id", doc.ID),
	)
	return doc.ID, nil
}

// UpsertBatch stores many documents with per-document failure reporting.
func (s *QdrantStore) UpsertBatch(ctx context.Context, collection string, docs []Document) ([]string, []BatchFailure, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.UpsertBatch")
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

	ids := make([]string, 0, len(docs))
	for i := range docs {
		if !ok[i] {
			continue
		}
		id, err := s.Upsert(ctx, collection, prepared[i])
		if err != nil {
			failures = append(failures, BatchFailure{Index: i, ID: prepared[i].ID, Err: err})
			continue
		}
		ids = append(ids, id)
	}

	span.SetAttributes(
		attribute.Int("documents_added", len(ids)),
		attribute.Int("documents_failed", len(failures)),
	)
	return ids, failures, nil
}

// Get returns a stored document including its embedding.
func (s *QdrantStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Get")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty document id", ErrValidation)
	}

	point, err := s.getPoint(ctx, collection, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if point == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	doc := documentFromPayload(point.Payload, point.GetVectors().GetVector().GetData())
	return &doc, nil
}

// Delete removes a document. Deleting an absent ID returns false, nil.
func (s *QdrantStore) Delete(ctx context.Context, collection, id string) (bool, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Delete")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return false, err
	}
	if id == "" {
		return false, fmt.Errorf("%w: empty document id", ErrValidation)
	}

	point, err := s.getPoint(ctx, collection, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if point == nil {
		return false, nil
	}

	err = s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{pointID(id)}},
				},
			},
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("deleting point from collection %s: %w", collection, err)
	}
	return true, nil
}

// DeleteWhere removes every document matching the filter.
func (s *QdrantStore) DeleteWhere(ctx context.Context, collection string, filter Filter) (int, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteWhere")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}

	qf := buildQdrantFilter(filter)
	var matched uint64
	err := s.retryOperation(ctx, "count_matching", func() error {
		count, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Filter:         qf,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			if isNotFoundGRPCError(err) {
				count = 0
				err = nil
			} else {
				return err
			}
		}
		matched = count
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("counting points in collection %s: %w", collection, err)
	}
	if matched == 0 {
		return 0, nil
	}

	selector := &qdrant.PointsSelector{}
	if qf != nil {
		selector.PointsSelectorOneOf = &qdrant.PointsSelector_Filter{Filter: qf}
	} else {
		// Empty filter matches everything.
		selector.PointsSelectorOneOf = &qdrant.PointsSelector_Filter{Filter: &qdrant.Filter{}}
	}
	err = s.retryOperation(ctx, "delete_where", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         selector,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("deleting points from collection %s: %w", collection, err)
	}

	span.SetAttributes(attribute.Int("documents_removed", int(matched)))
	return int(matched), nil
}

// Query returns up to k documents similar to the vector, filtered, gated by
// the configured minimum similarity and tie-broken by recency.
func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
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

	// Over-fetch so threshold gating and recency tie-breaks operate on the
	// full candidate neighborhood, not a pre-truncated one.
	var results []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "query", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k * 2)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
			Filter:         buildQdrantFilter(filter),
		})
		if err != nil {
			if isNotFoundGRPCError(err) {
				res = nil
				err = nil
			} else {
				return err
			}
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, point := range results {
		searchResults[i] = SearchResult{
			Document: documentFromPayload(point.Payload, point.GetVectors().GetVector().GetData()),
			Score:    point.Score,
		}
	}
	ranked := rankResults(searchResults, s.shared.MinSimilarity, k)

	span.SetAttributes(attribute.Int("results_count", len(ranked)))
	span.SetStatus(codes.Ok, "success")
	return ranked, nil
}

// List returns all documents matching the filter, oldest first.
func (s *QdrantStore) List(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.List")
	defer span.End()

	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	qf := buildQdrantFilter(filter)
	seen := make(map[string]bool)
	var docs []Document
	var offset *qdrant.PointId

	for {
		var page []*qdrant.RetrievedPoint
		err := s.retryOperation(ctx, "scroll", func() error {
			res, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
				CollectionName: collection,
				Filter:         qf,
				Limit:          qdrant.PtrOf(uint32(qdrantScrollPage)),
				Offset:         offset,
				WithPayload:    qdrant.NewWithPayload(true),
				WithVectors:    qdrant.NewWithVectors(true),
			})
			if err != nil {
				if isNotFoundGRPCError(err) {
					res = nil
					err = nil
				} else {
					return err
				}
			}
			page = res
			return nil
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("scrolling collection %s: %w", collection, err)
		}
		if len(page) == 0 {
			break
		}

		added := 0
		for _, point := range page {
			doc := documentFromPayload(point.Payload, point.GetVectors().GetVector().GetData())
			if seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			docs = append(docs, doc)
			added++
		}
		if added == 0 || len(page) < qdrantScrollPage {
			break
		}
		offset = page[len(page)-1].Id
	}

	sortDocuments(docs)
	span.SetAttributes(attribute.Int("results_count", len(docs)))
	return docs, nil
}

// Count returns the number of documents in the collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}

	var total uint64
	err := s.retryOperation(ctx, "count", func() error {
		count, err := s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			if isNotFoundGRPCError(err) {
				count = 0
				err = nil
			} else {
				return err
			}
		}
		total = count
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting collection %s: %w", collection, err)
	}
	return int(total), nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// errors.Is support for wrapped permanent failures is exercised by callers;
// keep the import anchored.
var _ = errors.Is
