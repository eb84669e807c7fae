package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"easel/plugin/internal/model"
)

// MemoryGateway keeps blobs in a map. It backs tests and lets the backend
// run without Redis or Postgres configured; contents vanish on restart.
type MemoryGateway struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// SaveErr, when set, makes every save fail. Tests use it to exercise the
	// divergence between memory and storage after a failed save.
	SaveErr error
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{blobs: make(map[string][]byte)}
}

func (g *MemoryGateway) load(documentID, name string, out any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.blobs[blobKey(documentID, name)]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, ErrCorruptBlob)
	}
	return nil
}

func (g *MemoryGateway) save(documentID, name string, in any) error {
	if g.SaveErr != nil {
		return g.SaveErr
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blobs[blobKey(documentID, name)] = data
	return nil
}

func (g *MemoryGateway) LoadDecisions(ctx context.Context, documentID string) ([]model.Decision, error) {
	decisions := []model.Decision{}
	if err := g.load(documentID, KeyDecisions, &decisions); err != nil {
		return []model.Decision{}, err
	}
	for i := range decisions {
		decisions[i].Normalize()
	}
	return decisions, nil
}

func (g *MemoryGateway) SaveDecisions(ctx context.Context, documentID string, decisions []model.Decision) error {
	return g.save(documentID, KeyDecisions, decisions)
}

func (g *MemoryGateway) LoadResources(ctx context.Context, documentID string) ([]model.Resource, error) {
	resources := []model.Resource{}
	if err := g.load(documentID, KeyResources, &resources); err != nil {
		return []model.Resource{}, err
	}
	for i := range resources {
		resources[i].Normalize()
	}
	return resources, nil
}

func (g *MemoryGateway) SaveResources(ctx context.Context, documentID string, resources []model.Resource) error {
	return g.save(documentID, KeyResources, resources)
}

func (g *MemoryGateway) Ping(ctx context.Context) error { return nil }

func (g *MemoryGateway) Close() error { return nil }
