package db

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ikkim/inventory-backend/pkg/logger"
)

// OpenBadger opens an embedded Badger store at path. An empty path opens an
// in-memory store, which is what the tests use.
func OpenBadger(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	logger.Info("Badger store opened", map[string]interface{}{
		"path":      path,
		"in_memory": path == "",
	})
	return bdb, nil
}
