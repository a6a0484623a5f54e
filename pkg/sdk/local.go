package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/celerix-dev/celerix-compliance/internal/engine"
	"github.com/celerix-dev/celerix-compliance/internal/portal"
	"github.com/celerix-dev/celerix-compliance/internal/seed"
	"github.com/celerix-dev/celerix-compliance/pkg/query"
)

// New initializes the store based on the environment.
// It returns the interface, so the app doesn't care if it's local or remote.
func New(dataDir string) (PortalStore, error) {
	// 1. Check if a remote daemon is defined in the environment
	if remoteAddr := os.Getenv("CELERIX_ADDR"); remoteAddr != "" {
		client, err := Connect(remoteAddr)
		if err == nil {
			return client, nil
		}
	}

	// 2. Fallback to embedded mode over the same data directory
	p, err := engine.NewPersistence(dataDir)
	if err != nil {
		return nil, err
	}
	return OpenLocal(p)
}

// Local runs the portal inside the calling process.
type Local struct {
	portal *portal.Portal
}

var _ PortalStore = (*Local)(nil)

// OpenLocal builds an embedded portal over p, seeding empty datasets with the
// built-in mock data. p may be nil for an in-memory store.
func OpenLocal(p engine.Persister) (*Local, error) {
	data, err := seed.Default()
	if err != nil {
		return nil, err
	}
	pt, err := portal.Open(p, data, portal.Options{})
	if err != nil {
		return nil, err
	}
	return &Local{portal: pt}, nil
}

func (l *Local) dataset(name string) (portal.Dataset, error) {
	d, err := l.portal.Dataset(name)
	if errors.Is(err, portal.ErrUnknownDataset) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return d, err
}

func localError(err error) error {
	if errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// remarshal converts a value through JSON so local and remote results share
// one shape.
func remarshal(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (l *Local) Ping() error { return nil }

func (l *Local) Datasets() ([]string, error) { return l.portal.Datasets(), nil }

func (l *Local) List(dataset string, req Request) (Result[json.RawMessage], error) {
	d, err := l.dataset(dataset)
	if err != nil {
		return Result[json.RawMessage]{}, err
	}
	var out Result[json.RawMessage]
	err = remarshal(d.Search(portal.Request(req)), &out)
	return out, err
}

func (l *Local) Get(dataset, id string) (json.RawMessage, error) {
	d, err := l.dataset(dataset)
	if err != nil {
		return nil, err
	}
	rec, err := d.Lookup(id)
	if err != nil {
		return nil, localError(err)
	}
	return json.Marshal(rec)
}

func (l *Local) Stats(dataset string, q query.Query) (query.Stats, error) {
	d, err := l.dataset(dataset)
	if err != nil {
		return query.Stats{}, err
	}
	return d.Summarize(q), nil
}

func (l *Local) Delete(dataset, id string) error {
	d, err := l.dataset(dataset)
	if err != nil {
		return err
	}
	return localError(d.Remove(portal.Actor{Name: "sdk"}, id))
}

// Close waits for pending writes to reach the data directory.
func (l *Local) Close() error {
	l.portal.Wait()
	return nil
}
