// Package filter models metadata filter expressions for vector queries.
//
// Filters use the service's MongoDB-style syntax and are evaluated server
// side. This package parses and validates them before a request is sent,
// so malformed filters and unknown operators never reach the network.
//
// # Building Filters
//
//	f := filter.And(
//	    filter.Eq("category", "apples"),
//	    filter.In("origin", "NL", "DE"),
//	)
//
// # Parsing Filters
//
//	f, err := filter.Parse(`{"$and":[{"category":{"$eq":"apples"}},{"origin":{"$in":["NL","DE"]}}]}`)
//	if errors.Is(err, filter.ErrInvalidFilter) {
//	    // reject before any request
//	}
//
// # Supported Operators
//
//   - $eq, $ne: scalar equality
//   - $gt, $gte, $lt, $lte: numeric comparison
//   - $in, $nin: set membership
//   - $exists: field presence
//   - $and, $or: logical combination
package filter
