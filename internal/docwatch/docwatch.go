// Package docwatch guards against the host process being reused across
// different documents without a restart. It caches the bound document
// identity and forces a full store reload whenever the live identity
// diverges; reload is the only supported recovery, there is no incremental
// diff.
package docwatch

import (
	"context"
	"fmt"
	"log/slog"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/store"
)

// Detector starts unbound and binds to the live document on first use.
type Detector struct {
	host   canvas.Host
	store  *store.Store
	logger *slog.Logger
	bound  string
}

func New(host canvas.Host, st *store.Store, logger *slog.Logger) *Detector {
	return &Detector{host: host, store: st, logger: logger}
}

// Ensure reconciles document identity before an inbound event is processed.
// On first call or identity mismatch it reloads the store (discarding the
// previous in-memory collections unconditionally) and reports switched=true
// so the caller can push fresh load events to the UI.
//
// A reload that fails to read storage still binds the new document with
// empty collections; the error is returned for a non-fatal notification.
func (d *Detector) Ensure(ctx context.Context) (canvas.Document, bool, error) {
	doc, err := d.host.CurrentDocument(ctx)
	if err != nil {
		return canvas.Document{}, false, fmt.Errorf("read document identity: %w", err)
	}

	if d.bound == doc.ID {
		return doc, false, nil
	}

	d.logger.Info("binding document", "documentId", doc.ID, "previous", d.bound)
	d.bound = doc.ID
	if err := d.store.Reload(ctx, doc.ID); err != nil {
		return doc, true, err
	}
	return doc, true, nil
}

// Bound returns the cached document identity, or "" when unbound.
func (d *Detector) Bound() string {
	return d.bound
}
