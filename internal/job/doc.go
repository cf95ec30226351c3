// Package job drives one separation job from submission to decoded stems.
//
// The Controller is a small state machine:
//
//	idle → submitting → polling → loading-results → complete
//
// with error reachable from every non-terminal state and error → submitting
// only through Retry. Polling runs on a cancellable ticker; every async
// continuation carries the generation it was started under and is dropped if
// the controller has since been cancelled, retried, or closed.
//
// Observers registered with Subscribe receive a Snapshot after each
// transition, delivered in order from a dispatch goroutine so a slow observer
// never holds up Cancel or polling. Progress is monotonic for a given job.
package job
