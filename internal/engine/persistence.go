package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// FilePersistence handles the disk I/O for record stores, one JSON file per dataset.
type FilePersistence struct {
	DataDir string
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

// NewPersistence initializes a file persistence handler.
func NewPersistence(dir string) (*FilePersistence, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilePersistence{DataDir: dir}, nil
}

func (p *FilePersistence) path(dataset string) string {
	return filepath.Join(p.DataDir, dataset+".json")
}

// Save writes a dataset snapshot atomically: readers see either the old file
// or the new one, never a partial write.
func (p *FilePersistence) Save(dataset string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := atomic.WriteFile(p.path(dataset), bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("save %s: %w", dataset, err)
	}
	return nil
}

// Load returns the snapshot for a dataset.
func (p *FilePersistence) Load(dataset string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := os.ReadFile(p.path(dataset))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dataset, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dataset, err)
	}
	return data, nil
}

// Datasets returns the names of every snapshot in the data directory.
func (p *FilePersistence) Datasets() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(file.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
