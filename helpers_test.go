package s3vkit

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/s3vkit/config"
	"github.com/hupe1980/s3vkit/model"
	"github.com/hupe1980/s3vkit/vectorstore"
)

var testIndex = model.IndexDescriptor{
	Bucket:    "vectors",
	Index:     "docs",
	Dimension: 4,
	DataType:  model.DataTypeFloat32,
	Metric:    model.MetricCosine,
}

// queryStub serves QueryVectors from a function and everything else from
// the embedded MemoryStore.
type queryStub struct {
	*vectorstore.MemoryStore
	query func(in vectorstore.QueryInput) (model.QueryResult, error)
}

func (s *queryStub) QueryVectors(_ context.Context, _, _ string, in vectorstore.QueryInput) (model.QueryResult, error) {
	return s.query(in)
}

func newProvisioned(t *testing.T) (*Client, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore()
	c := New(store)
	_, err := c.EnsureBucket(context.Background(), testIndex.Bucket)
	require.NoError(t, err)
	_, err = c.EnsureIndex(context.Background(), testIndex)
	require.NoError(t, err)
	return c, store
}

func vec(xs ...float32) []float32 { return xs }

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := config.NewViper()
	v.Set(config.KeyBucket, testIndex.Bucket)
	v.Set(config.KeyIndex, testIndex.Index)
	v.Set(config.KeyDimension, testIndex.Dimension)
	v.Set(config.KeyFilterJSON, "")
	v.Set(config.KeyFilterKind, "")
	v.Set(config.KeyMinSimilarity, "")
	v.Set(config.KeyCleanup, "0")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Resolve(v)
	require.NoError(t, err)
	return cfg
}

func testWorkflow(t *testing.T, c *Client, overrides map[string]any) *Workflow {
	t.Helper()
	return NewWorkflow(c, testConfig(t, overrides),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithKeySuffix("abcd1234"),
	)
}
