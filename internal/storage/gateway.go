// Package storage persists the decision and resource collections as whole
// JSON blobs, one blob per collection per document. Whole-collection
// overwrite keeps the format simple and avoids partial-corruption states;
// collections are small (tens to low hundreds of entries), so O(n) writes
// per mutation are acceptable.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"easel/plugin/internal/model"
)

// Namespace prefixes every storage key so the plugin's blobs never collide
// with other tenants of the same backend.
const Namespace = "easel"

// Logical blob names within a document's namespace.
const (
	KeyDecisions = "decisions"
	KeyResources = "resources"
)

// ErrCorruptBlob marks a stored blob that could not be decoded. Loads wrap
// it alongside an empty collection so the caller can keep working while
// still surfacing a non-fatal notification to the user.
var ErrCorruptBlob = errors.New("stored blob is corrupt")

// Gateway reads and writes the per-document collections. A missing blob
// loads as an empty collection with no error. A corrupt blob loads as an
// empty collection with an error wrapping ErrCorruptBlob; backend and
// transport failures are returned as-is. Load errors never stop the caller,
// which keeps the empty collection and notifies the user.
type Gateway interface {
	LoadDecisions(ctx context.Context, documentID string) ([]model.Decision, error)
	SaveDecisions(ctx context.Context, documentID string, decisions []model.Decision) error
	LoadResources(ctx context.Context, documentID string) ([]model.Resource, error)
	SaveResources(ctx context.Context, documentID string, resources []model.Resource) error
	Ping(ctx context.Context) error
	Close() error
}

func decodeDecisions(data []byte, logger *slog.Logger) ([]model.Decision, error) {
	var decisions []model.Decision
	if err := json.Unmarshal(data, &decisions); err != nil {
		logger.Warn("discarding corrupt decisions blob", "error", err)
		return []model.Decision{}, fmt.Errorf("decode decisions: %w", ErrCorruptBlob)
	}
	if decisions == nil {
		decisions = []model.Decision{}
	}
	for i := range decisions {
		decisions[i].Normalize()
	}
	return decisions, nil
}

func decodeResources(data []byte, logger *slog.Logger) ([]model.Resource, error) {
	var resources []model.Resource
	if err := json.Unmarshal(data, &resources); err != nil {
		logger.Warn("discarding corrupt resources blob", "error", err)
		return []model.Resource{}, fmt.Errorf("decode resources: %w", ErrCorruptBlob)
	}
	if resources == nil {
		resources = []model.Resource{}
	}
	for i := range resources {
		resources[i].Normalize()
	}
	return resources, nil
}
