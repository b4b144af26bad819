package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/s3vkit/metric"
	"github.com/hupe1980/s3vkit/model"
)

// Operation names a Store method for fault injection and call counting.
type Operation string

// Store operations.
const (
	OpCreateBucket  Operation = "CreateBucket"
	OpCreateIndex   Operation = "CreateIndex"
	OpDescribeIndex Operation = "DescribeIndex"
	OpPutVectors    Operation = "PutVectors"
	OpQueryVectors  Operation = "QueryVectors"
	OpDeleteVectors Operation = "DeleteVectors"
)

// MemoryStore is an in-memory Store implementation for testing.
// It mirrors the service semantics closely enough to exercise provisioning,
// filtering, ranking and cleanup without network access.
// Thread-safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*memoryIndex
	faults  map[Operation]error
	calls   map[Operation]int
}

type memoryIndex struct {
	desc    model.IndexDescriptor
	records map[string]model.VectorRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]map[string]*memoryIndex),
		faults:  make(map[Operation]error),
		calls:   make(map[Operation]int),
	}
}

// SetFault makes every subsequent call of op fail with err.
// Passing a nil error clears the fault.
func (m *MemoryStore) SetFault(op Operation, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Calls returns how many times op was invoked, including failed calls.
func (m *MemoryStore) Calls(op Operation) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Keys returns the sorted keys stored in an index.
func (m *MemoryStore) Keys(bucket, index string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.buckets[bucket][index]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(idx.records))
	for k := range idx.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// enter records a call and returns the injected fault, if any.
// Must be called with m.mu held.
func (m *MemoryStore) enter(ctx context.Context, op Operation) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return m.faults[op]
}

// CreateBucket implements Store.
func (m *MemoryStore) CreateBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(ctx, OpCreateBucket); err != nil {
		return err
	}
	if _, ok := m.buckets[bucket]; ok {
		return fmt.Errorf("vector bucket %q: %w", bucket, ErrAlreadyExists)
	}
	m.buckets[bucket] = make(map[string]*memoryIndex)
	return nil
}

// CreateIndex implements Store.
func (m *MemoryStore) CreateIndex(ctx context.Context, desc model.IndexDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(ctx, OpCreateIndex); err != nil {
		return err
	}
	indexes, ok := m.buckets[desc.Bucket]
	if !ok {
		return fmt.Errorf("vector bucket %q: %w", desc.Bucket, ErrNotFound)
	}
	if _, ok := indexes[desc.Index]; ok {
		return fmt.Errorf("index %q: %w", desc.String(), ErrAlreadyExists)
	}
	if desc.Dimension <= 0 {
		return fmt.Errorf("index %q: invalid dimension %d", desc.String(), desc.Dimension)
	}
	indexes[desc.Index] = &memoryIndex{
		desc:    desc,
		records: make(map[string]model.VectorRecord),
	}
	return nil
}

// DescribeIndex implements Store.
func (m *MemoryStore) DescribeIndex(ctx context.Context, bucket, index string) (model.IndexDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(ctx, OpDescribeIndex); err != nil {
		return model.IndexDescriptor{}, err
	}
	idx, err := m.index(bucket, index)
	if err != nil {
		return model.IndexDescriptor{}, err
	}
	return idx.desc, nil
}

// PutVectors implements Store.
func (m *MemoryStore) PutVectors(ctx context.Context, bucket, index string, records []model.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(ctx, OpPutVectors); err != nil {
		return err
	}
	idx, err := m.index(bucket, index)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Embedding) != idx.desc.Dimension {
			return fmt.Errorf("record %q: dimension %d does not match index dimension %d", r.Key, len(r.Embedding), idx.desc.Dimension)
		}
	}
	for _, r := range records {
		vec := make([]float32, len(r.Embedding))
		copy(vec, r.Embedding)
		idx.records[r.Key] = model.VectorRecord{Key: r.Key, Embedding: vec, Metadata: r.Metadata.Clone()}
	}
	return nil
}

// QueryVectors implements Store.
func (m *MemoryStore) QueryVectors(ctx context.Context, bucket, index string, in QueryInput) (model.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(ctx, OpQueryVectors); err != nil {
		return model.QueryResult{}, err
	}
	idx, err := m.index(bucket, index)
	if err != nil {
		return model.QueryResult{}, err
	}
	if len(in.Vector) != idx.desc.Dimension {
		return model.QueryResult{}, fmt.Errorf("query dimension %d does not match index dimension %d", len(in.Vector), idx.desc.Dimension)
	}

	matches := make([]model.Match, 0, len(idx.records))
	for _, r := range idx.records {
		if !in.Filter.Matches(r.Metadata) {
			continue
		}
		d, err := metric.Distance(idx.desc.Metric, in.Vector, r.Embedding)
		if err != nil {
			return model.QueryResult{}, err
		}
		matches = append(matches, model.Match{Key: r.Key, Distance: d, Metadata: r.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Key < matches[j].Key
	})
	if len(matches) > in.TopK {
		matches = matches[:in.TopK]
	}

	for i := range matches {
		if in.ReturnMetadata {
			matches[i].Metadata = matches[i].Metadata.Clone()
		} else {
			matches[i].Metadata = nil
		}
		if !in.ReturnDistance {
			matches[i].Distance = 0
		}
	}

	return model.QueryResult{Metric: idx.desc.Metric, Matches: matches}, nil
}

// DeleteVectors implements Store.
func (m *MemoryStore) DeleteVectors(ctx context.Context, bucket, index string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.enter(ctx, OpDeleteVectors); err != nil {
		return err
	}
	idx, err := m.index(bucket, index)
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(idx.records, k)
	}
	return nil
}

func (m *MemoryStore) index(bucket, index string) (*memoryIndex, error) {
	indexes, ok := m.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("vector bucket %q: %w", bucket, ErrNotFound)
	}
	idx, ok := indexes[index]
	if !ok {
		return nil, fmt.Errorf("index %q: %w", bucket+"/"+index, ErrNotFound)
	}
	return idx, nil
}
