package model

// WorkItem is one unit of crawl work: a URL and the depth at which it was
// discovered. Items are values and are copied on enqueue.
type WorkItem struct {
	// URL is the raw URL to fetch.
	URL string

	// NormalizedURL is the canonical form, filled in lazily by the worker.
	NormalizedURL string

	// Depth is the BFS depth (seeds are depth 0).
	Depth int

	// Priority orders the work queue; lower is more urgent.
	// The default equals Depth, which yields breadth-first traversal.
	Priority int

	// DiscoveredAt is when the item was created.
	DiscoveredAt Timestamp

	// Referrer is the page on which the URL was discovered, if any.
	Referrer string
}

// NewWorkItem creates a work item with priority equal to depth.
func NewWorkItem(url string, depth int) WorkItem {
	return WorkItem{
		URL:          url,
		Depth:        depth,
		Priority:     depth,
		DiscoveredAt: Now(),
	}
}

// Less reports whether the item should be popped before other.
// Comparison is by priority ascending; ties break arbitrarily.
func (w WorkItem) Less(other WorkItem) bool {
	return w.Priority < other.Priority
}
