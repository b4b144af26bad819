package model

import (
	"fmt"
	"strings"
)

// Metric is the distance function an index ranks neighbors by.
type Metric string

const (
	// MetricCosine ranks by cosine distance (1 - cosine similarity).
	MetricCosine Metric = "cosine"
	// MetricEuclidean ranks by euclidean distance.
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric parses a metric name case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricCosine, MetricEuclidean:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported distance metric %q (want cosine or euclidean)", s)
	}
}

// DataType is the element type of stored embeddings.
type DataType string

// DataTypeFloat32 is the only element type the service accepts today.
const DataTypeFloat32 DataType = "float32"

// ParseDataType parses a data type name.
func ParseDataType(s string) (DataType, error) {
	if dt := DataType(strings.ToLower(strings.TrimSpace(s))); dt == DataTypeFloat32 {
		return dt, nil
	}
	return "", fmt.Errorf("unsupported data type %q (want float32)", s)
}

// Metadata maps a field name to a scalar value (string, number or bool).
type Metadata map[string]any

// Clone returns a shallow copy. Values are scalars, so this is a full copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// VectorRecord is a single keyed embedding with metadata.
type VectorRecord struct {
	Key       string
	Embedding []float32
	Metadata  Metadata
}

// IndexDescriptor identifies a vector index and its immutable layout.
type IndexDescriptor struct {
	Bucket    string
	Index     string
	Dimension int
	DataType  DataType
	Metric    Metric
}

// String returns "bucket/index".
func (d IndexDescriptor) String() string {
	return d.Bucket + "/" + d.Index
}

// Match is a single nearest-neighbor hit.
type Match struct {
	Key      string
	Distance float32
	Metadata Metadata
}

// Similarity returns 1 - Distance. Only meaningful for cosine indexes.
func (m Match) Similarity() float64 {
	return 1 - float64(m.Distance)
}

// QueryResult is the ordered (closest first) answer to a top-K query.
type QueryResult struct {
	// Metric is the distance metric reported by the service for this query.
	// It may be empty if the service did not report one.
	Metric  Metric
	Matches []Match
}

// Keys returns the keys of all matches in order.
func (r QueryResult) Keys() []string {
	keys := make([]string, len(r.Matches))
	for i := range r.Matches {
		keys[i] = r.Matches[i].Key
	}
	return keys
}
