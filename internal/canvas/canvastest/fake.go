// Package canvastest provides an in-memory canvas.Host for tests.
package canvastest

import (
	"context"
	"sync"

	"easel/plugin/internal/canvas"
)

// FakeHost implements canvas.Host against plain in-memory state. Zero value
// is usable; configure fields before handing it to the code under test.
type FakeHost struct {
	mu sync.Mutex

	Doc  canvas.Document
	User canvas.User
	Sel  *canvas.Selection

	// Nodes that exist in the fake document.
	Nodes map[string]bool

	// Rows holds mirror rows per page, in append order.
	Rows map[string][]canvas.Row

	// Pages that EnsureMirrorPage has been asked to create.
	EnsuredPages []string
	// SwitchedPages records every SwitchPage call in order.
	SwitchedPages []string
	// CenterCalls records every SelectAndCenter nodeID in order.
	CenterCalls []string
	// RemoveCalls records every RemoveMirrorRow key in order.
	RemoveCalls []string

	// FailCenterTimes makes the first N SelectAndCenter calls miss.
	FailCenterTimes int
	// AppendErr, when set, is returned by AppendMirrorRow.
	AppendErr error
}

func (f *FakeHost) CurrentDocument(ctx context.Context) (canvas.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Doc, nil
}

func (f *FakeHost) CurrentUser(ctx context.Context) (canvas.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.User, nil
}

func (f *FakeHost) Selection(ctx context.Context) (*canvas.Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Sel == nil {
		return nil, nil
	}
	sel := *f.Sel
	return &sel, nil
}

func (f *FakeHost) NodeExists(ctx context.Context, nodeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nodes[nodeID], nil
}

func (f *FakeHost) SwitchPage(ctx context.Context, pageName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SwitchedPages = append(f.SwitchedPages, pageName)
	return nil
}

func (f *FakeHost) SelectAndCenter(ctx context.Context, nodeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CenterCalls = append(f.CenterCalls, nodeID)
	if f.FailCenterTimes > 0 {
		f.FailCenterTimes--
		return canvas.ErrNodeNotFound
	}
	if !f.Nodes[nodeID] {
		return canvas.ErrNodeNotFound
	}
	return nil
}

func (f *FakeHost) EnsureMirrorPage(ctx context.Context, pageName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EnsuredPages = append(f.EnsuredPages, pageName)
	if f.Rows == nil {
		f.Rows = make(map[string][]canvas.Row)
	}
	if _, ok := f.Rows[pageName]; !ok {
		f.Rows[pageName] = []canvas.Row{}
	}
	return nil
}

func (f *FakeHost) AppendMirrorRow(ctx context.Context, pageName string, row canvas.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	if f.Rows == nil {
		f.Rows = make(map[string][]canvas.Row)
	}
	f.Rows[pageName] = append(f.Rows[pageName], row)
	return nil
}

func (f *FakeHost) RemoveMirrorRow(ctx context.Context, pageName, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemoveCalls = append(f.RemoveCalls, key)
	rows := f.Rows[pageName]
	for i, row := range rows {
		if row.Key == key {
			f.Rows[pageName] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return canvas.ErrNodeNotFound
}

func (f *FakeHost) ListMirrorRowKeys(ctx context.Context, pageName string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.Rows[pageName]))
	for _, row := range f.Rows[pageName] {
		keys = append(keys, row.Key)
	}
	return keys, nil
}

func (f *FakeHost) ClearMirrorRows(ctx context.Context, pageName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Rows == nil {
		f.Rows = make(map[string][]canvas.Row)
	}
	f.Rows[pageName] = []canvas.Row{}
	return nil
}

// RowKeys returns current row keys for a page without taking a context.
func (f *FakeHost) RowKeys(pageName string) []string {
	keys, _ := f.ListMirrorRowKeys(context.Background(), pageName)
	return keys
}
