package engine

import (
	"fmt"

	"github.com/celerix-dev/celerix-compliance/internal/vault"
)

// EncryptedPersister encrypts snapshots with AES-GCM before handing them to
// the wrapped persister.
type EncryptedPersister struct {
	Inner Persister
	Key   []byte
}

func (e *EncryptedPersister) Save(dataset string, payload []byte) error {
	sealed, err := vault.Encrypt(string(payload), e.Key)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", dataset, err)
	}
	return e.Inner.Save(dataset, []byte(sealed))
}

func (e *EncryptedPersister) Load(dataset string) ([]byte, error) {
	sealed, err := e.Inner.Load(dataset)
	if err != nil {
		return nil, err
	}
	plain, err := vault.Decrypt(string(sealed), e.Key)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", dataset, err)
	}
	return []byte(plain), nil
}
