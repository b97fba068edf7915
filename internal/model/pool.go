package model

// PoolStats is a snapshot of the connection pool's accounting.
// Available+CheckedOut never exceeds PoolSize; TotalCreated counts every
// connection ever opened, including replacements for dead ones.
type PoolStats struct {
	PoolSize     int
	Available    int
	CheckedOut   int
	TotalCreated int64
}
