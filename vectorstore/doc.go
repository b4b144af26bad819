// Package vectorstore defines the remote vector storage contract used by the
// provisioning and query workflow.
//
// Store is the interface for bucket/index provisioning and record
// put/query/delete. Implementations must be safe for concurrent use and map
// service errors onto the package sentinels:
//
//   - ErrAlreadyExists: create conflicts, treated as success by provisioning
//   - ErrNotFound: missing bucket or index
//   - ErrTransient: timeouts, throttling, temporary unavailability
//
// # Built-in Implementations
//
//   - s3vectors.Store: Amazon S3 Vectors via aws-sdk-go-v2
//   - MemoryStore: in-memory store for tests
//   - RateLimited: wraps any Store with a client-side request rate limit
package vectorstore
