// Package worker drives the per-message ingestion state machine:
// Received, Downloading, Converting, Embedding, Indexing, Acknowledged,
// with a failure branch reachable from every stage.
//
// Each consumed delivery runs as an independent state-machine instance
// on a bounded goroutine pool. The worker alone decides
// retryable-vs-terminal routing: retryable failures return the message
// to the queue un-acked, terminal failures delete the message and write
// an operator-visible failure record, never a silent drop. During
// conversion, a best-effort keepalive periodically extends the
// message's visibility; a failed extension never aborts processing.
//
// On shutdown the worker stops new-work intake, lets in-flight items
// drain inside a deadline, and returns whatever is still running to the
// queue before exiting. Held licenses are released by the conversion
// layer on every exit path, so preemption never strands a slot.
package worker
