package cli

import (
	"os"

	"github.com/modledger/modledger/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from the --data-dir flag,
// MODLEDGER_DATA_DIR env var, or ~/.modledger as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("MODLEDGER_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.modledger"
}

// openStore opens the SQLite store under the resolved data directory.
func openStore() (*store.Store, error) {
	return store.NewStore(resolveDataDir())
}
