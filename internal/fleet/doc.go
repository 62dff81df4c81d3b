// Package fleet tracks worker liveness and busy/idle state in Redis.
//
// Each worker heartbeats a short-TTL key carrying its state. The
// autoscaling controller reads the registry to honor the rule that only
// workers that self-report idle may be selected for termination. A
// worker that dies stops refreshing its key and disappears from the
// registry within the TTL, so the registry never needs explicit
// deregistration.
package fleet
