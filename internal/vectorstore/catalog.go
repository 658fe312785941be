package vectorstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const catalogFileName = "catalog.jsonl"

// catalogRecord is one journal line.
type catalogRecord struct {
	Op         string    `json:"op"`
	Collection string    `json:"collection,omitempty"`
	ID         string    `json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	Model      string    `json:"model,omitempty"`
}

const (
	catalogOpModel  = "model"
	catalogOpUpsert = "upsert"
	catalogOpDelete = "delete"
)

// catalog journals document membership per collection for the embedded
// backend; chromem-go supports lookup and search but not enumeration. It also
// pins the embedding model identity the corpus was built with.
//
// Records append to a JSON-lines file that is replayed and compacted on open.
// Membership ops are journaled before the corresponding database write, so
// after a crash the catalog can name at worst a document the database never
// received; reads drop such entries lazily via dropMissing.
type catalog struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	file   *os.File
	model  string
	byColl map[string]map[string]time.Time
}

func openCatalog(dir string, logger *zap.Logger) (*catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory %s: %w", dir, err)
	}

	c := &catalog{
		path:   filepath.Join(dir, catalogFileName),
		logger: logger,
		byColl: make(map[string]map[string]time.Time),
	}

	if err := c.replay(); err != nil {
		return nil, err
	}
	if err := c.compact(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", c.path, err)
	}
	c.file = file

	return c, nil
}

// replay loads the journal into memory. A truncated final line from an
// interrupted write is skipped, not treated as corruption.
func (c *catalog) replay() error {
	file, err := os.Open(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening catalog %s: %w", c.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec catalogRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			c.logger.Warn("skipping unreadable catalog record", zap.Error(err))
			continue
		}
		c.apply(rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading catalog %s: %w", c.path, err)
	}
	return nil
}

func (c *catalog) apply(rec catalogRecord) {
	switch rec.Op {
	case catalogOpModel:
		c.model = rec.Model
	case catalogOpUpsert:
		coll := c.byColl[rec.Collection]
		if coll == nil {
			coll = make(map[string]time.Time)
			c.byColl[rec.Collection] = coll
		}
		coll[rec.ID] = rec.CreatedAt
	case catalogOpDelete:
		delete(c.byColl[rec.Collection], rec.ID)
	default:
		c.logger.Warn("skipping catalog record with unknown op", zap.String("op", rec.Op))
	}
}

// compact rewrites the journal to one record per live document plus the model
// record, then atomically replaces the old file.
func (c *catalog) compact() error {
	tmp := c.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating catalog temp file: %w", err)
	}

	w := bufio.NewWriter(file)
	write := func(rec catalogRecord) error {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		return w.WriteByte('\n')
	}

	var writeErr error
	if c.model != "" {
		writeErr = write(catalogRecord{Op: catalogOpModel, Model: c.model})
	}
	for collection, ids := range c.byColl {
		for id, createdAt := range ids {
			if writeErr != nil {
				break
			}
			writeErr = write(catalogRecord{
				Op:         catalogOpUpsert,
				Collection: collection,
				ID:         id,
				CreatedAt:  createdAt,
			})
		}
	}
	if writeErr == nil {
		writeErr = w.Flush()
	}
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("compacting catalog: %w", writeErr)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}

func (c *catalog) append(rec catalogRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding catalog record: %w", err)
	}
	if _, err := c.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending catalog record: %w", err)
	}
	c.apply(rec)
	return nil
}

// modelName returns the embedding model the catalog was built with, or "".
func (c *catalog) modelName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *catalog) setModel(model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.append(catalogRecord{Op: catalogOpModel, Model: model})
}

func (c *catalog) recordUpsert(collection, id string, createdAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.append(catalogRecord{
		Op:         catalogOpUpsert,
		Collection: collection,
		ID:         id,
		CreatedAt:  createdAt,
	})
}

func (c *catalog) recordDelete(collection, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.append(catalogRecord{Op: catalogOpDelete, Collection: collection, ID: id})
}

// createdAt returns the recorded creation time for a document, if present.
func (c *catalog) createdAt(collection, id string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.byColl[collection][id]
	return t, ok
}

// entries returns a copy of the membership map for one collection.
func (c *catalog) entries(collection string) map[string]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]time.Time, len(c.byColl[collection]))
	for id, createdAt := range c.byColl[collection] {
		out[id] = createdAt
	}
	return out
}

func (c *catalog) count(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byColl[collection])
}

// dropMissing removes a catalog entry whose document is gone from the
// database, the read-side half of the crash recovery described above.
func (c *catalog) dropMissing(collection, id string) {
	c.logger.Debug("dropping stale catalog entry",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	if err := c.recordDelete(collection, id); err != nil {
		c.logger.Warn("failed to drop stale catalog entry", zap.Error(err))
	}
}

func (c *catalog) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
