// Package mirror projects the decision collection onto a generated
// in-canvas table so decisions can be browsed without opening the plugin UI.
// The table is a convenience view, never a source of truth: every operation
// here swallows host failures, and the authoritative store and persisted
// data stay correct even if the mirror silently falls out of sync.
package mirror

import (
	"context"
	"log/slog"
	"sort"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/model"
)

// PageName is the fixed name of the dedicated mirror page in the host
// document.
const PageName = "Decision Log"

// truncateLimit caps rationale/context cell text.
const truncateLimit = 100

var statusColors = map[string]string{
	model.StatusProposed:   "#2196F3", // blue
	model.StatusAccepted:   "#4CAF50", // green
	model.StatusRejected:   "#F44336", // red
	model.StatusDeprecated: "#795548", // brown
	model.StatusSuperseded: "#9C27B0", // purple
}

// Reconciler keeps the mirror table consistent with store mutations. Rows
// are keyed by the decision's stable id, carried as row metadata, so renames
// and duplicate titles cannot orphan a row.
type Reconciler struct {
	host   canvas.Host
	logger *slog.Logger
}

func New(host canvas.Host, logger *slog.Logger) *Reconciler {
	return &Reconciler{host: host, logger: logger}
}

// AddRow appends a row for a newly created decision.
func (r *Reconciler) AddRow(ctx context.Context, decision model.Decision) {
	if err := r.host.EnsureMirrorPage(ctx, PageName); err != nil {
		r.logger.Warn("mirror page unavailable", "error", err)
		return
	}
	if err := r.host.AppendMirrorRow(ctx, PageName, rowFor(decision)); err != nil {
		r.logger.Warn("mirror add row failed", "decisionId", decision.ID, "error", err)
	}
}

// UpdateRow replaces the decision's row with current field values. The row
// is looked up by its id key, so renames and duplicate titles cannot orphan
// it; a decision with no row yet (the mirror was unavailable when it was
// created) is simply appended.
func (r *Reconciler) UpdateRow(ctx context.Context, decision model.Decision) {
	if err := r.host.EnsureMirrorPage(ctx, PageName); err != nil {
		r.logger.Warn("mirror page unavailable", "error", err)
		return
	}
	keys, err := r.host.ListMirrorRowKeys(ctx, PageName)
	if err != nil {
		r.logger.Warn("mirror row listing failed", "error", err)
	}
	if hasKey(keys, decision.ID) {
		if err := r.host.RemoveMirrorRow(ctx, PageName, decision.ID); err != nil {
			r.logger.Warn("mirror remove before update failed", "decisionId", decision.ID, "error", err)
		}
	}
	if err := r.host.AppendMirrorRow(ctx, PageName, rowFor(decision)); err != nil {
		r.logger.Warn("mirror update row failed", "decisionId", decision.ID, "error", err)
	}
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// RemoveRow drops the row for a deleted decision.
func (r *Reconciler) RemoveRow(ctx context.Context, decisionID string) {
	if err := r.host.RemoveMirrorRow(ctx, PageName, decisionID); err != nil {
		r.logger.Warn("mirror remove row failed", "decisionId", decisionID, "error", err)
	}
}

// RebuildAll clears all non-header rows and regenerates them in descending
// timestamp order, newest first. This is the only place global ordering is
// enforced; incremental operations preserve append order.
func (r *Reconciler) RebuildAll(ctx context.Context, decisions []model.Decision) {
	if err := r.host.EnsureMirrorPage(ctx, PageName); err != nil {
		r.logger.Warn("mirror page unavailable", "error", err)
		return
	}
	if err := r.host.ClearMirrorRows(ctx, PageName); err != nil {
		r.logger.Warn("mirror clear failed", "error", err)
		return
	}

	ordered := make([]model.Decision, len(decisions))
	copy(ordered, decisions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})

	for _, decision := range ordered {
		if err := r.host.AppendMirrorRow(ctx, PageName, rowFor(decision)); err != nil {
			r.logger.Warn("mirror rebuild row failed", "decisionId", decision.ID, "error", err)
		}
	}
}

func rowFor(decision model.Decision) canvas.Row {
	color, ok := statusColors[decision.Status]
	if !ok {
		color = statusColors[model.StatusProposed]
	}
	return canvas.Row{
		Key:       decision.ID,
		Title:     decision.Title,
		Status:    decision.Status,
		Color:     color,
		Rationale: truncate(decision.Rationale),
		Context:   truncate(decision.Context),
		Author:    decision.Author,
		Timestamp: decision.Timestamp.Format("2006-01-02 15:04"),
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= truncateLimit {
		return s
	}
	return string(runes[:truncateLimit]) + "…"
}
