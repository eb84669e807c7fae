// Package canvas defines the interface to the host design tool. The host
// owns the scene graph, the current selection, and the viewport; the plugin
// backend only ever reaches them through this boundary.
package canvas

import (
	"context"
	"errors"
)

// ErrNodeNotFound indicates a node or page lookup missed in the host document.
var ErrNodeNotFound = errors.New("canvas node not found")

// Document identifies the host document the plugin is currently bound to.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the active user's identity as reported by the host.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Selection describes the single currently selected element. A nil Selection
// means nothing (or more than one element) is selected.
type Selection struct {
	NodeID   string `json:"nodeId"`
	NodeName string `json:"nodeName"`
	PageName string `json:"pageName"`
}

// Row is one rendered row of the in-canvas mirror table. Key carries the
// owning decision's id as row metadata so rows survive title renames.
type Row struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Color     string `json:"color"`
	Rationale string `json:"rationale"`
	Context   string `json:"context"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Host is the full host-adapter surface the backend depends on. Lookup and
// navigation failures are reported as ErrNodeNotFound; anything else is a
// transport or host-side error.
type Host interface {
	CurrentDocument(ctx context.Context) (Document, error)
	CurrentUser(ctx context.Context) (User, error)
	Selection(ctx context.Context) (*Selection, error)

	NodeExists(ctx context.Context, nodeID string) (bool, error)
	SwitchPage(ctx context.Context, pageName string) error
	SelectAndCenter(ctx context.Context, nodeID string) error

	EnsureMirrorPage(ctx context.Context, pageName string) error
	AppendMirrorRow(ctx context.Context, pageName string, row Row) error
	RemoveMirrorRow(ctx context.Context, pageName, key string) error
	ListMirrorRowKeys(ctx context.Context, pageName string) ([]string, error)
	ClearMirrorRows(ctx context.Context, pageName string) error
}
