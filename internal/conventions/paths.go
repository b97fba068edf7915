package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default scriba data directory name (relative to home).
	DefaultDataDir = ".scriba"
	// DBFile is the SQLite database filename inside the data directory.
	DBFile = "scriba.db"
)

// DBPath returns the full path to the SQLite database file.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}
