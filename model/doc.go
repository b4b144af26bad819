// Package model defines the types shared by the vector store adapters and
// the provisioning/query workflow.
//
// # Data Types
//
//   - VectorRecord: key, float32 embedding of the index dimension, scalar metadata
//   - IndexDescriptor: bucket, index, dimension, data type and distance metric
//   - QueryResult: matches ordered by ascending distance
//
// Distances follow the service convention: smaller is closer. For cosine
// indexes the similarity of a match is 1 - distance.
package model
