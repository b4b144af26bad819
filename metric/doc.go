// Package metric provides reference distance functions matching the
// service's cosine and euclidean metrics.
//
// The service computes distances server side. These helpers back the
// in-memory store used in tests and offline examples.
package metric
