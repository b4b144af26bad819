// Package credcheck verifies that AWS credentials resolve to an identity and
// that a bucket is reachable before any vector workflow runs.
package credcheck
