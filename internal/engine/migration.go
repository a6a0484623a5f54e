package engine

import (
	"errors"
	"fmt"
)

// Migrate copies dataset snapshots from a source persister to a destination.
// This works for:
// - File -> SQLite (moving to a single database file)
// - SQLite -> File (backup/offline inspection)
// - Plain -> Encrypted (turning on at-rest encryption)
//
// Datasets absent from src are skipped. It returns the names actually copied.
func Migrate(src, dst Persister, datasets ...string) ([]string, error) {
	var copied []string
	for _, name := range datasets {
		payload, err := src.Load(name)
		if errors.Is(err, ErrNoSnapshot) {
			continue
		}
		if err != nil {
			return copied, fmt.Errorf("failed to read dataset %s: %w", name, err)
		}
		if err := dst.Save(name, payload); err != nil {
			return copied, fmt.Errorf("failed to write dataset %s: %w", name, err)
		}
		copied = append(copied, name)
	}
	return copied, nil
}
