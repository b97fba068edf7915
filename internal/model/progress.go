package model

// ProgressReport is a point-in-time view of a long operation's advancement.
type ProgressReport struct {
	Completed  int
	Total      int
	Percent    float64 // 0..100, 0 when Total is unknown.
	Label      string
	ETA        string  // "unknown" until enough samples exist.
	Throughput float64 // units per second, smoothed.
}
