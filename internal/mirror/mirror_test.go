package mirror

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"easel/plugin/internal/canvas/canvastest"
	"easel/plugin/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decision(id, title, status string, ts time.Time) model.Decision {
	d := model.Decision{ID: id, Title: title, Status: status, Timestamp: ts, Author: "Avery"}
	d.Normalize()
	return d
}

func TestAddRowCreatesPageAndRow(t *testing.T) {
	host := &canvastest.FakeHost{}
	r := New(host, testLogger())

	r.AddRow(context.Background(), decision("dec_1", "Use dark mode default", model.StatusProposed, time.Now()))

	if len(host.EnsuredPages) != 1 || host.EnsuredPages[0] != PageName {
		t.Errorf("expected page %q ensured, got %v", PageName, host.EnsuredPages)
	}
	rows := host.Rows[PageName]
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Key != "dec_1" {
		t.Errorf("row must be keyed by decision id, got %q", rows[0].Key)
	}
	if rows[0].Color != "#2196F3" {
		t.Errorf("proposed rows are blue, got %q", rows[0].Color)
	}
}

func TestStatusColors(t *testing.T) {
	cases := map[string]string{
		model.StatusProposed:   "#2196F3",
		model.StatusAccepted:   "#4CAF50",
		model.StatusRejected:   "#F44336",
		model.StatusDeprecated: "#795548",
		model.StatusSuperseded: "#9C27B0",
	}
	for status, want := range cases {
		row := rowFor(decision("dec_x", "t", status, time.Now()))
		if row.Color != want {
			t.Errorf("status %s: expected %s, got %s", status, want, row.Color)
		}
	}
}

func TestRowTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", 150)
	d := decision("dec_1", "t", model.StatusProposed, time.Now())
	d.Rationale = long
	d.Context = "short"

	row := rowFor(d)
	if len([]rune(row.Rationale)) != truncateLimit+1 || !strings.HasSuffix(row.Rationale, "…") {
		t.Errorf("rationale not truncated with ellipsis: %d runes", len([]rune(row.Rationale)))
	}
	if row.Context != "short" {
		t.Errorf("short text must pass through, got %q", row.Context)
	}
}

func TestUpdateRowSurvivesTitleRename(t *testing.T) {
	host := &canvastest.FakeHost{}
	r := New(host, testLogger())
	ctx := context.Background()

	d := decision("dec_1", "Old title", model.StatusProposed, time.Now())
	r.AddRow(ctx, d)

	d.Title = "Completely new title"
	d.Status = model.StatusAccepted
	r.UpdateRow(ctx, d)

	rows := host.Rows[PageName]
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row after rename, got %d", len(rows))
	}
	if rows[0].Title != "Completely new title" || rows[0].Key != "dec_1" {
		t.Errorf("row not updated in place: %+v", rows[0])
	}
	if len(host.RemoveCalls) != 1 || host.RemoveCalls[0] != "dec_1" {
		t.Errorf("expected the stale row removed by id, got %v", host.RemoveCalls)
	}
}

func TestUpdateRowAppendsWhenRowWasNeverMirrored(t *testing.T) {
	host := &canvastest.FakeHost{}
	r := New(host, testLogger())

	d := decision("dec_1", "Recorded while mirror was down", model.StatusProposed, time.Now())
	r.UpdateRow(context.Background(), d)

	if len(host.RemoveCalls) != 0 {
		t.Errorf("no removal should be attempted for an unmirrored decision, got %v", host.RemoveCalls)
	}
	keys := host.RowKeys(PageName)
	if len(keys) != 1 || keys[0] != "dec_1" {
		t.Errorf("expected the row appended fresh, got %v", keys)
	}
}

func TestRemoveRow(t *testing.T) {
	host := &canvastest.FakeHost{}
	r := New(host, testLogger())
	ctx := context.Background()

	r.AddRow(ctx, decision("dec_1", "a", model.StatusProposed, time.Now()))
	r.AddRow(ctx, decision("dec_2", "b", model.StatusProposed, time.Now()))
	r.RemoveRow(ctx, "dec_1")

	keys := host.RowKeys(PageName)
	if len(keys) != 1 || keys[0] != "dec_2" {
		t.Errorf("expected only dec_2 left, got %v", keys)
	}
}

func TestRebuildAllOrdersNewestFirst(t *testing.T) {
	host := &canvastest.FakeHost{}
	r := New(host, testLogger())
	base := time.Now()

	decisions := []model.Decision{
		decision("dec_old", "old", model.StatusProposed, base.Add(-2*time.Hour)),
		decision("dec_new", "new", model.StatusProposed, base),
		decision("dec_mid", "mid", model.StatusProposed, base.Add(-time.Hour)),
	}
	r.RebuildAll(context.Background(), decisions)

	keys := host.RowKeys(PageName)
	want := []string{"dec_new", "dec_mid", "dec_old"}
	if len(keys) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("row %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestHostFailuresAreSwallowed(t *testing.T) {
	host := &canvastest.FakeHost{AppendErr: errors.New("font load failed")}
	r := New(host, testLogger())

	// Must not panic or propagate; the mirror is best-effort.
	r.AddRow(context.Background(), decision("dec_1", "t", model.StatusProposed, time.Now()))
	r.RebuildAll(context.Background(), []model.Decision{decision("dec_2", "u", model.StatusProposed, time.Now())})
	r.RemoveRow(context.Background(), "dec_missing")
}
