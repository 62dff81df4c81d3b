// Package vectorindex manages the vector similarity index behind an
// alias-based generation scheme.
//
// Each index generation is a separate Qdrant collection created from an
// explicit Mapping (dimension, similarity function, HNSW build
// parameters). A single alias points at the active generation; readers
// and writers resolve the alias, never a collection name. Migration to
// a new mapping is zero downtime: create the new generation, copy every
// document with a running checkpoint, validate counts and mapping, then
// atomically repoint the alias. The old generation is retained for a
// minimum window before it may be retired, so a bad promote can be
// rolled back by repointing the alias.
//
// Queries run graph-based approximate nearest-neighbor search with a
// per-call efSearch bound. Metadata filters restrict the candidate set
// during the search, not after it, so restrictive filters still fill
// the requested page. Pagination is cursor-based on (score, id).
package vectorindex
