// Package autoscaler sizes the worker fleet from queue depth.
//
// A fixed-interval control loop reads the broker's depth signal,
// computes the desired worker count from a per-worker throughput
// constant, and compares it to the current fleet size. Scale-out is
// immediate, subject to a minimum increment so a burst does not produce
// a trickle of single launches. Scale-in is deliberately slow: the low
// state must persist across a sustained window, a cooldown follows
// every action, the fleet never drops below its floor, and only workers
// that self-report idle in the fleet registry are selected for
// termination.
package autoscaler
