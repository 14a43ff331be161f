// Package promptsync provides the repository and synchronization layer for a
// prompt-template sharing system: private per-user template copies, a shared
// community catalog, social counters, and fork provenance, backed by a
// pluggable schemaless document store and blob storage.
//
// It exposes a single Service interface that maintains the mirror invariant
// (a public copy of a template exists exactly while the template is public,
// with field values equal to the private copy as of the last successful
// write), implements like/usage counters, and serves a subscription-backed
// read model over the community catalog. Implementations of the document
// store (memory, Postgres) and blob stores (memory, filesystem, S3) are
// provided under subpackages.
//
// # Consistency Model
//
// The layer holds no in-process locks and issues sequential remote calls per
// operation. Cross-client consistency is whatever the backing store provides:
// last-writer-wins per document, no cross-document atomicity. The mirror
// invariant is therefore not transactional; a failure between the private
// write and the mirror write leaves the mirror stale until the next
// successful save or update on the same template.
package promptsync
