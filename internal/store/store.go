// Package store owns the in-memory decision and resource collections for the
// bound document and keeps them consistent with durable storage.
//
// Every mutation follows save-then-acknowledge order: memory is mutated
// first, then the whole collection is persisted, and only then is success
// reported. A failed save is returned as an error but memory is not rolled
// back, so memory and storage stay diverged until the next successful save
// or reload. Memory remains the best-effort source of truth.
//
// The store is not safe for concurrent use. It is owned by the bridge's
// command loop and accessed only from that single goroutine.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"easel/plugin/internal/model"
	"easel/plugin/internal/storage"
	"easel/plugin/internal/util"
)

// ErrNotFound is returned by updates and deletes that miss. Callers decide
// how to surface it; the store never fakes success.
var ErrNotFound = errors.New("record not found")

// Store holds the collections for one document at a time.
type Store struct {
	gateway    storage.Gateway
	logger     *slog.Logger
	documentID string
	decisions  []model.Decision
	resources  []model.Resource
}

// New creates an empty store. Reload binds it to a document.
func New(gateway storage.Gateway, logger *slog.Logger) *Store {
	return &Store{
		gateway:   gateway,
		logger:    logger,
		decisions: []model.Decision{},
		resources: []model.Resource{},
	}
}

// DocumentID returns the identity of the currently bound document, or ""
// before the first Reload.
func (s *Store) DocumentID() string {
	return s.documentID
}

// Reload discards the in-memory collections unconditionally and loads the
// given document's persisted collections. Each collection loads
// independently: a failure on one leaves that collection empty but does not
// skip the other. The store stays bound to the new document either way; the
// caller surfaces any error as a non-fatal notification.
func (s *Store) Reload(ctx context.Context, documentID string) error {
	s.documentID = documentID
	s.decisions = []model.Decision{}
	s.resources = []model.Resource{}

	decisions, decErr := s.gateway.LoadDecisions(ctx, documentID)
	if decErr != nil {
		s.logger.Warn("loading decisions failed", "documentId", documentID, "error", decErr)
		decErr = fmt.Errorf("reload decisions: %w", decErr)
	} else {
		s.decisions = decisions
	}
	resources, resErr := s.gateway.LoadResources(ctx, documentID)
	if resErr != nil {
		s.logger.Warn("loading resources failed", "documentId", documentID, "error", resErr)
		resErr = fmt.Errorf("reload resources: %w", resErr)
	} else {
		s.resources = resources
	}

	return errors.Join(decErr, resErr)
}

// CreateDecision assigns identity, authorship, and creation time, fills
// defaults, and appends the decision. Append order is creation order,
// independent of any sort applied for display.
func (s *Store) CreateDecision(ctx context.Context, draft model.Decision, author string) (model.Decision, error) {
	if author == "" {
		author = "Unknown"
	}
	draft.ID = util.NewID("dec")
	draft.Timestamp = time.Now().UTC()
	draft.Author = author
	draft.Normalize()

	s.decisions = append(s.decisions, draft)
	if err := s.persistDecisions(ctx); err != nil {
		return draft, err
	}
	return draft, nil
}

// UpdateDecision replaces the stored record wholesale except for ID and
// Author, which are preserved from the stored copy regardless of what the
// incoming record carries, and Timestamp, which is refreshed.
func (s *Store) UpdateDecision(ctx context.Context, incoming model.Decision) (model.Decision, error) {
	for i := range s.decisions {
		if s.decisions[i].ID != incoming.ID {
			continue
		}
		incoming.Author = s.decisions[i].Author
		incoming.Timestamp = time.Now().UTC()
		incoming.Normalize()
		s.decisions[i] = incoming

		if err := s.persistDecisions(ctx); err != nil {
			return incoming, err
		}
		return incoming, nil
	}
	return model.Decision{}, fmt.Errorf("update decision %s: %w", incoming.ID, ErrNotFound)
}

// DeleteDecision removes the record permanently. There is no soft delete:
// once the save succeeds the record is unrecoverable.
func (s *Store) DeleteDecision(ctx context.Context, id string) error {
	for i := range s.decisions {
		if s.decisions[i].ID != id {
			continue
		}
		s.decisions = append(s.decisions[:i], s.decisions[i+1:]...)
		return s.persistDecisions(ctx)
	}
	return fmt.Errorf("delete decision %s: %w", id, ErrNotFound)
}

// Decisions returns a snapshot of the collection in append order.
func (s *Store) Decisions() []model.Decision {
	out := make([]model.Decision, len(s.decisions))
	copy(out, s.decisions)
	return out
}

// CreateResource mirrors CreateDecision for the resource collection.
func (s *Store) CreateResource(ctx context.Context, draft model.Resource, author string) (model.Resource, error) {
	if author == "" {
		author = "Unknown"
	}
	draft.ID = util.NewID("res")
	draft.Timestamp = time.Now().UTC()
	draft.Author = author
	draft.Normalize()

	s.resources = append(s.resources, draft)
	if err := s.persistResources(ctx); err != nil {
		return draft, err
	}
	return draft, nil
}

// UpdateResource mirrors UpdateDecision.
func (s *Store) UpdateResource(ctx context.Context, incoming model.Resource) (model.Resource, error) {
	for i := range s.resources {
		if s.resources[i].ID != incoming.ID {
			continue
		}
		incoming.Author = s.resources[i].Author
		incoming.Timestamp = time.Now().UTC()
		incoming.Normalize()
		s.resources[i] = incoming

		if err := s.persistResources(ctx); err != nil {
			return incoming, err
		}
		return incoming, nil
	}
	return model.Resource{}, fmt.Errorf("update resource %s: %w", incoming.ID, ErrNotFound)
}

// DeleteResource mirrors DeleteDecision.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	for i := range s.resources {
		if s.resources[i].ID != id {
			continue
		}
		s.resources = append(s.resources[:i], s.resources[i+1:]...)
		return s.persistResources(ctx)
	}
	return fmt.Errorf("delete resource %s: %w", id, ErrNotFound)
}

// Resources returns a snapshot of the collection in append order.
func (s *Store) Resources() []model.Resource {
	out := make([]model.Resource, len(s.resources))
	copy(out, s.resources)
	return out
}

func (s *Store) persistDecisions(ctx context.Context) error {
	if err := s.gateway.SaveDecisions(ctx, s.documentID, s.decisions); err != nil {
		s.logger.Warn("saving decisions failed, memory and storage diverged", "documentId", s.documentID, "error", err)
		return fmt.Errorf("persist decisions: %w", err)
	}
	return nil
}

func (s *Store) persistResources(ctx context.Context) error {
	if err := s.gateway.SaveResources(ctx, s.documentID, s.resources); err != nil {
		s.logger.Warn("saving resources failed, memory and storage diverged", "documentId", s.documentID, "error", err)
		return fmt.Errorf("persist resources: %w", err)
	}
	return nil
}
