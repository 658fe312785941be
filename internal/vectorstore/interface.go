// Package vectorstore provides persistent storage and similarity search for
// embedded documents. Three implementations exist behind the Store interface:
// an embedded chromem-go store (default), an external Qdrant store over gRPC,
// and an in-memory store for tests and ephemeral runs.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// MinContentLength is the minimum trimmed content length a document must have
// to be indexable. Shorter documents are rejected with ErrValidation.
const MinContentLength = 20

// Sentinel errors for store operations.
var (
	// ErrValidation indicates a document failed write-time validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a document does not exist.
	// A query with no matches is an empty result, not ErrNotFound.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrModelMismatch is returned when a durable store was built with a
	// different embedding model than the one configured. The corpus must be
	// re-embedded before the store can serve queries.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

var collectionNameRe = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName rejects collection names outside [a-z0-9_]{1,64}.
func ValidateCollectionName(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid collection name %q", ErrValidation, name)
	}
	return nil
}

// Embedder generates vector embeddings from text.
//
// Implementations can use local ONNX models or OpenAI-compatible APIs. All
// vectors produced by one Embedder instance have the same dimension.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for document storage and similarity search.
//
// Semantics shared by all implementations:
//
//   - Upsert with an existing ID replaces the document; CreatedAt is kept
//     from the first insert. A document without an embedding is embedded
//     before persisting; a supplied embedding is validated against the
//     configured vector size and stored as-is.
//   - Delete is idempotent: deleting an absent ID returns false, nil.
//   - Query ranks by cosine similarity, descending. Candidates are narrowed
//     by the exact-match filter before ranking, results below the configured
//     minimum similarity are dropped even inside the top k, and ties are
//     broken by most recent CreatedAt. An empty result is not an error.
//   - Operations on a collection that does not exist yet behave as if the
//     collection were empty.
//
// Writes to the same ID serialize; reads may run concurrently with writes.
type Store interface {
	// Upsert validates, embeds if necessary, and stores a document.
	// Returns the document ID (generated when absent).
	Upsert(ctx context.Context, collection string, doc Document) (string, error)

	// UpsertBatch stores many documents, continuing past per-document
	// failures. Returns the IDs written and one BatchFailure per document
	// that was skipped. The error return is reserved for failures of the
	// batch as a whole, such as an invalid collection name.
	UpsertBatch(ctx context.Context, collection string, docs []Document) ([]string, []BatchFailure, error)

	// Get returns the stored document, including its embedding.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Delete removes a document. Returns whether it existed.
	Delete(ctx context.Context, collection, id string) (bool, error)

	// DeleteWhere removes every document matching the filter.
	// Returns the number of documents removed.
	DeleteWhere(ctx context.Context, collection string, filter Filter) (int, error)

	// Query returns up to k documents similar to the given vector.
	Query(ctx context.Context, collection string, vector []float32, k int, filter Filter) ([]SearchResult, error)

	// List returns all documents matching the filter, ordered by CreatedAt
	// ascending with ID as tiebreak.
	List(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases store resources.
	Close() error
}
