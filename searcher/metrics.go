package searcher

import "time"

// SearchMetric summarizes one planning call.
type SearchMetric struct {
	Iterations   int
	Duration     time.Duration
	NodesCreated int
	Lambda       float64
}
