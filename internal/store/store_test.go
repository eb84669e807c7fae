package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"easel/plugin/internal/model"
	"easel/plugin/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) (*Store, *storage.MemoryGateway) {
	gateway := storage.NewMemoryGateway()
	s := New(gateway, testLogger())
	if err := s.Reload(context.Background(), "doc-1"); err != nil {
		t.Fatalf("initial reload failed: %v", err)
	}
	return s, gateway
}

func TestCreateDecisionAssignsIdentity(t *testing.T) {
	s, _ := newTestStore(t)
	before := time.Now().UTC()

	created, err := s.CreateDecision(context.Background(), model.Decision{
		Title:     "Use dark mode default",
		Rationale: "Accessibility",
		Context:   "Settings redesign",
	}, "Avery")
	if err != nil {
		t.Fatalf("CreateDecision failed: %v", err)
	}

	if created.ID == "" {
		t.Error("expected a non-empty id")
	}
	if created.Status != model.StatusProposed {
		t.Errorf("expected status proposed, got %q", created.Status)
	}
	if created.Author != "Avery" {
		t.Errorf("expected author Avery, got %q", created.Author)
	}
	if created.Timestamp.Before(before) || created.Timestamp.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("timestamp not near now: %v", created.Timestamp)
	}
	if created.Links == nil || created.Pros == nil || created.Cons == nil || created.Tags == nil {
		t.Error("optional sequences must default to empty")
	}
}

func TestCreateDecisionUnknownAuthor(t *testing.T) {
	s, _ := newTestStore(t)
	created, err := s.CreateDecision(context.Background(), model.Decision{Title: "t"}, "")
	if err != nil {
		t.Fatalf("CreateDecision failed: %v", err)
	}
	if created.Author != "Unknown" {
		t.Errorf("expected Unknown author, got %q", created.Author)
	}
}

func TestCreateAssignsDistinctIDs(t *testing.T) {
	s, _ := newTestStore(t)
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		created, err := s.CreateDecision(context.Background(), model.Decision{Title: "t"}, "Avery")
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if _, dup := seen[created.ID]; dup {
			t.Fatalf("duplicate id on create %d: %s", i, created.ID)
		}
		seen[created.ID] = struct{}{}
	}
}

func TestUpdateDecisionPreservesIDAndAuthor(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateDecision(ctx, model.Decision{Title: "Use dark mode default"}, "Avery")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	edit := created
	edit.Status = model.StatusAccepted
	edit.Author = "Mallory" // must be ignored
	updated, err := s.UpdateDecision(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("id changed on edit: %s -> %s", created.ID, updated.ID)
	}
	if updated.Author != "Avery" {
		t.Errorf("author must be write-once, got %q", updated.Author)
	}
	if updated.Status != model.StatusAccepted {
		t.Errorf("status not updated: %q", updated.Status)
	}
	if updated.Timestamp.Before(created.Timestamp) {
		t.Errorf("timestamp must refresh on edit: %v !>= %v", updated.Timestamp, created.Timestamp)
	}
}

func TestUpdateMissingIDLeavesCollectionUnchanged(t *testing.T) {
	s, gateway := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateDecision(ctx, model.Decision{Title: "t"}, "Avery"); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := s.UpdateDecision(ctx, model.Decision{ID: "dec_missing", Title: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(s.Decisions()) != 1 {
		t.Errorf("collection changed by missing-id edit: %d records", len(s.Decisions()))
	}

	persisted, _ := gateway.LoadDecisions(ctx, "doc-1")
	if len(persisted) != 1 {
		t.Errorf("missing-id edit must not persist a new entry: %d records", len(persisted))
	}
}

func TestDeleteDecisionRemovesFromMemoryAndStorage(t *testing.T) {
	s, gateway := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateDecision(ctx, model.Decision{Title: "t"}, "Avery")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.DeleteDecision(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, d := range s.Decisions() {
		if d.ID == created.ID {
			t.Error("deleted decision still listed")
		}
	}

	persisted, _ := gateway.LoadDecisions(ctx, "doc-1")
	for _, d := range persisted {
		if d.ID == created.ID {
			t.Error("deleted decision still persisted")
		}
	}
}

func TestDeleteMissingIDReportsNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.DeleteDecision(context.Background(), "dec_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryMatchesStorageAfterMutationSequence(t *testing.T) {
	s, gateway := newTestStore(t)
	ctx := context.Background()

	first, _ := s.CreateDecision(ctx, model.Decision{Title: "a"}, "Avery")
	second, _ := s.CreateDecision(ctx, model.Decision{Title: "b"}, "Avery")
	third, _ := s.CreateDecision(ctx, model.Decision{Title: "c"}, "Avery")

	edit := second
	edit.Title = "b2"
	if _, err := s.UpdateDecision(ctx, edit); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteDecision(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	persisted, _ := gateway.LoadDecisions(ctx, "doc-1")
	inMemory := s.Decisions()
	if len(persisted) != len(inMemory) {
		t.Fatalf("memory (%d) and storage (%d) diverged", len(inMemory), len(persisted))
	}
	for i := range inMemory {
		if inMemory[i].ID != persisted[i].ID || inMemory[i].Title != persisted[i].Title {
			t.Errorf("record %d diverged: %+v vs %+v", i, inMemory[i], persisted[i])
		}
	}
	if inMemory[len(inMemory)-1].ID != third.ID {
		t.Error("append order lost")
	}
}

func TestFailedSaveKeepsMemoryMutation(t *testing.T) {
	s, gateway := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateDecision(ctx, model.Decision{Title: "kept"}, "Avery")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	gateway.SaveErr = errors.New("disk full")
	edit := created
	edit.Title = "edited"
	if _, err := s.UpdateDecision(ctx, edit); err == nil {
		t.Fatal("expected save error")
	}

	// Memory keeps the mutation even though the save failed.
	if s.Decisions()[0].Title != "edited" {
		t.Errorf("memory rolled back: %q", s.Decisions()[0].Title)
	}

	// Storage still holds the pre-edit state.
	gateway.SaveErr = nil
	persisted, _ := gateway.LoadDecisions(ctx, "doc-1")
	if persisted[0].Title != "kept" {
		t.Errorf("storage unexpectedly updated: %q", persisted[0].Title)
	}
}

func TestReloadSwitchesDocumentsWithoutResidue(t *testing.T) {
	s, gateway := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateDecision(ctx, model.Decision{Title: "doc1 decision"}, "Avery"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := gateway.SaveDecisions(ctx, "doc-2", []model.Decision{{ID: "dec_other", Title: "doc2 decision"}}); err != nil {
		t.Fatalf("seed doc-2: %v", err)
	}

	if err := s.Reload(ctx, "doc-2"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.DocumentID() != "doc-2" {
		t.Errorf("bound document not updated: %s", s.DocumentID())
	}

	decisions := s.Decisions()
	if len(decisions) != 1 || decisions[0].ID != "dec_other" {
		t.Fatalf("expected exactly doc-2's collection, got %v", decisions)
	}

	// Switching to a document with no saved collections yields empty ones.
	if err := s.Reload(ctx, "doc-3"); err != nil {
		t.Fatalf("reload empty: %v", err)
	}
	if len(s.Decisions()) != 0 || len(s.Resources()) != 0 {
		t.Error("expected empty collections for a fresh document")
	}
}

func TestResourceLifecycle(t *testing.T) {
	s, gateway := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateResource(ctx, model.Resource{Title: "Design tokens guide", URL: "https://example.com", Category: "reference"}, "Avery")
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if created.ID == "" || created.Author != "Avery" {
		t.Errorf("identity not assigned: %+v", created)
	}

	edit := created
	edit.Description = "Token naming conventions"
	edit.Author = "Mallory"
	updated, err := s.UpdateResource(ctx, edit)
	if err != nil {
		t.Fatalf("update resource: %v", err)
	}
	if updated.Author != "Avery" {
		t.Errorf("resource author must be write-once, got %q", updated.Author)
	}

	if err := s.DeleteResource(ctx, created.ID); err != nil {
		t.Fatalf("delete resource: %v", err)
	}
	persisted, _ := gateway.LoadResources(ctx, "doc-1")
	if len(persisted) != 0 {
		t.Errorf("resource still persisted after delete: %v", persisted)
	}
}
