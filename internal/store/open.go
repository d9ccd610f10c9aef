package store

import (
	"fmt"
	"os"
	"path/filepath"

	"relaychat/internal/domain"
)

// Account store backends accepted by OpenAccountStore.
const (
	BackendBolt   = "bolt"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// OpenAccountStore opens the credential store for backend at path. The
// parent directory is created for file backends.
func OpenAccountStore(backend, path string) (domain.CredentialStore, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryAccountStore(), nil
	case BackendBolt, "":
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		return OpenBoltAccountStore(path)
	case BackendBadger:
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, err
		}
		return OpenBadgerAccountStore(path)
	default:
		return nil, fmt.Errorf("unknown account backend %q", backend)
	}
}
