package store

import (
	"fmt"

	"go.uber.org/zap"
)

// Open creates a store for the configured backend: "json" (default) or
// "bolt".
func Open(backend, path string, log *zap.Logger) (Store, error) {
	switch backend {
	case "", "json":
		return OpenJSON(path, log)
	case "bolt":
		return OpenBolt(path, log)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", backend)
	}
}
