package engine

// SchedulingError is a fatal execution fault: an unresolvable goto target, a
// node type with no registered handler, or an unbounded dynamic run. It
// aborts the run and surfaces as a flow-level error event. Scheduling errors
// are not retryable without correcting the authored graph.
type SchedulingError struct {
	Reason string
}

func (e *SchedulingError) Error() string {
	return "scheduling error: " + e.Reason
}
