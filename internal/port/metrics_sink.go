package port

// IgnoreReason labels why an event was classified but not applied.
type IgnoreReason string

const (
	ReasonDuplicate IgnoreReason = "duplicate"
	ReasonStale     IgnoreReason = "stale"
)

// MetricsSink receives event counts. Implementations must be fire-and-forget:
// they may not block or return errors to the engine.
type MetricsSink interface {
	EventApplied()
	EventIgnored(reason IgnoreReason)
	GapDetected()
}
