// Package embedding computes vector embeddings for extracted document
// text and page images by calling a managed inference endpoint.
//
// The package exposes a single entrypoint, Client, which hides the
// provider details (HTTP transport, auth, retry) from the pipeline.
// Oversized inputs are rejected locally before any remote call.
// Rate limiting and transient endpoint failures are retried with
// exponential backoff and jitter up to a fixed attempt budget; every
// accepted response is checked against the model's known geometry
// before it is handed to the caller, so a denormalized or malformed
// vector can never reach the cache or the index.
package embedding
