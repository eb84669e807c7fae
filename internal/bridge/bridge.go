// Package bridge is the asynchronous command/event contract between the
// backend state and the plugin UI.
//
// Commands are processed by a single-consumer queue: one goroutine drains
// the channel and each command is handled to completion before the next is
// dequeued. The collection store and the bound-document cache are touched
// only from that goroutine, so no locking is needed around them; the only
// lock in the package guards the event-subscriber map.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/docwatch"
	"easel/plugin/internal/mirror"
	"easel/plugin/internal/model"
	"easel/plugin/internal/store"
)

type submission struct {
	ctx      context.Context
	cmd      Command
	reply    chan Event
	snapshot chan snapshotData
}

type snapshotData struct {
	doc       canvas.Document
	decisions []model.Decision
	err       error
}

// Bridge dispatches UI commands to the store and emits terminal events.
type Bridge struct {
	store       *store.Store
	detector    *docwatch.Detector
	host        canvas.Host
	mirror      *mirror.Reconciler
	logger      *slog.Logger
	settleDelay time.Duration

	commands chan submission

	mu          sync.Mutex
	subscribers map[string]chan Event

	closed    chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func New(st *store.Store, detector *docwatch.Detector, host canvas.Host, reconciler *mirror.Reconciler, settleDelay time.Duration, logger *slog.Logger) *Bridge {
	return &Bridge{
		store:       st,
		detector:    detector,
		host:        host,
		mirror:      reconciler,
		logger:      logger,
		settleDelay: settleDelay,
		commands:    make(chan submission),
		subscribers: make(map[string]chan Event),
		closed:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Run drains the command queue until the context is cancelled or a close
// command arrives. It must be called exactly once.
func (b *Bridge) Run(ctx context.Context) {
	defer close(b.stopped)
	defer b.drainPending()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.closed:
			return
		case sub := <-b.commands:
			b.handle(sub)
		}
	}
}

// drainPending fails any submission that won the enqueue race against
// shutdown, so its caller never blocks on a reply that will not come.
func (b *Bridge) drainPending() {
	for {
		select {
		case sub := <-b.commands:
			if sub.snapshot != nil {
				sub.snapshot <- snapshotData{err: fmt.Errorf("plugin session closed")}
			} else {
				sub.reply <- errorEvent("plugin session closed")
			}
		default:
			return
		}
	}
}

// Done is closed once a close command has been processed.
func (b *Bridge) Done() <-chan struct{} {
	return b.closed
}

// Dispatch queues a command and waits for its terminal event. Exactly one
// event is returned per command.
func (b *Bridge) Dispatch(ctx context.Context, cmd Command) Event {
	sub := submission{ctx: ctx, cmd: cmd, reply: make(chan Event, 1)}
	select {
	case b.commands <- sub:
	case <-b.stopped:
		return errorEvent("plugin session closed")
	case <-ctx.Done():
		return errorEvent("cancelled: %v", ctx.Err())
	}

	// A successful enqueue guarantees a reply: either the loop handles the
	// command or drainPending fails it on shutdown.
	select {
	case evt := <-sub.reply:
		return evt
	case <-ctx.Done():
		return errorEvent("cancelled: %v", ctx.Err())
	}
}

// NotifySelectionChanged is called when the host reports a selection change.
// Like any inbound event it first reconciles document identity, then emits a
// selection-info event.
func (b *Bridge) NotifySelectionChanged(ctx context.Context) Event {
	return b.Dispatch(ctx, Command{Type: cmdSelectionChanged})
}

// Snapshot returns the bound document and the current decision collection,
// routed through the command queue so reads never race mutations.
func (b *Bridge) Snapshot(ctx context.Context) (canvas.Document, []model.Decision, error) {
	sub := submission{ctx: ctx, snapshot: make(chan snapshotData, 1)}
	select {
	case b.commands <- sub:
	case <-b.stopped:
		return canvas.Document{}, nil, fmt.Errorf("plugin session closed")
	case <-ctx.Done():
		return canvas.Document{}, nil, ctx.Err()
	}

	select {
	case data := <-sub.snapshot:
		return data.doc, data.decisions, data.err
	case <-ctx.Done():
		return canvas.Document{}, nil, ctx.Err()
	}
}

// Subscribe registers an event listener. Slow subscribers lose events
// rather than blocking the command loop.
func (b *Bridge) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bridge) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *Bridge) broadcast(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("dropping event for slow subscriber", "subscriber", id, "event", evt.Type)
		}
	}
}

func (b *Bridge) handle(sub submission) {
	if sub.snapshot != nil {
		doc, _, err := b.ensureDocument(sub.ctx)
		if doc.ID == "" {
			sub.snapshot <- snapshotData{err: err}
			return
		}
		sub.snapshot <- snapshotData{doc: doc, decisions: b.store.Decisions()}
		return
	}
	sub.reply <- b.process(sub.ctx, sub.cmd)
}

// ensureDocument runs the document-change check that precedes every inbound
// event. On a switch it rebuilds the mirror and pushes fresh load events.
func (b *Bridge) ensureDocument(ctx context.Context) (canvas.Document, bool, error) {
	doc, switched, err := b.detector.Ensure(ctx)
	if err != nil && !switched {
		return canvas.Document{}, false, err
	}
	if err != nil {
		// Bound with empty collections; storage was unreadable.
		b.broadcast(errorEvent("stored collections could not be read: %v", err))
	}
	if switched {
		b.mirror.RebuildAll(ctx, b.store.Decisions())
		b.broadcast(Event{
			Type:         EvtLoadDecisions,
			Decisions:    b.store.Decisions(),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
		})
		b.broadcast(Event{
			Type:         EvtLoadResources,
			Resources:    b.store.Resources(),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
		})
	}
	return doc, switched, nil
}

func (b *Bridge) process(ctx context.Context, cmd Command) Event {
	doc, _, err := b.ensureDocument(ctx)
	if err != nil {
		return errorEvent("host document unavailable: %v", err)
	}

	if cmd.Type != cmdSelectionChanged {
		if err := cmd.Validate(); err != nil {
			return errorEvent("invalid %s command: %v", cmd.Type, err)
		}
	}

	switch cmd.Type {
	case CmdCreateDecision:
		return b.createDecision(ctx, cmd)
	case CmdEditDecision:
		return b.editDecision(ctx, cmd)
	case CmdDeleteDecision:
		return b.deleteDecision(ctx, cmd)
	case CmdCreateResource:
		return b.createResource(ctx, cmd)
	case CmdEditResource:
		return b.editResource(ctx, cmd)
	case CmdDeleteResource:
		return b.deleteResource(ctx, cmd)
	case CmdGetUserInfo:
		user, err := b.host.CurrentUser(ctx)
		if err != nil {
			return errorEvent("user info unavailable: %v", err)
		}
		return Event{Type: EvtUserInfo, User: &user}
	case CmdGetDocumentID:
		return Event{Type: EvtDocumentID, DocumentID: doc.ID, DocumentName: doc.Name}
	case CmdNavigateToNode:
		return b.navigate(ctx, cmd.NodeID, cmd.PageName)
	case cmdSelectionChanged:
		return b.selectionInfo(ctx)
	case CmdClose:
		b.closeOnce.Do(func() { close(b.closed) })
		return Event{Type: EvtClosed}
	}
	return errorEvent("unknown command %q", cmd.Type)
}

func (b *Bridge) createDecision(ctx context.Context, cmd Command) Event {
	draft := *cmd.Decision
	// Capture the element reference from the live selection at creation
	// time. It is pure data from here on; it goes stale if the element is
	// later deleted or moved.
	if draft.NodeID == "" {
		if sel, err := b.host.Selection(ctx); err == nil && sel != nil {
			draft.NodeID = sel.NodeID
			draft.NodeName = sel.NodeName
			draft.PageName = sel.PageName
		}
	}

	created, saveErr := b.store.CreateDecision(ctx, draft, b.authorName(ctx))
	b.mirror.AddRow(ctx, created)
	if saveErr != nil {
		return errorEvent("decision recorded but saving failed: %v", saveErr)
	}
	evt := Event{Type: EvtDecisionCreated, Decision: &created}
	b.broadcast(evt)
	return evt
}

func (b *Bridge) editDecision(ctx context.Context, cmd Command) Event {
	updated, err := b.store.UpdateDecision(ctx, *cmd.Decision)
	if errors.Is(err, store.ErrNotFound) {
		return errorEvent("decision %s not found", cmd.Decision.ID)
	}
	b.mirror.UpdateRow(ctx, updated)
	if err != nil {
		return errorEvent("decision updated but saving failed: %v", err)
	}
	evt := Event{Type: EvtDecisionUpdated, Decision: &updated}
	b.broadcast(evt)
	return evt
}

func (b *Bridge) deleteDecision(ctx context.Context, cmd Command) Event {
	err := b.store.DeleteDecision(ctx, cmd.ID)
	if errors.Is(err, store.ErrNotFound) {
		return errorEvent("decision %s not found", cmd.ID)
	}
	b.mirror.RemoveRow(ctx, cmd.ID)
	if err != nil {
		return errorEvent("decision deleted but saving failed: %v", err)
	}
	evt := Event{Type: EvtDecisionDeleted, ID: cmd.ID}
	b.broadcast(evt)
	return evt
}

func (b *Bridge) createResource(ctx context.Context, cmd Command) Event {
	created, saveErr := b.store.CreateResource(ctx, *cmd.Resource, b.authorName(ctx))
	if saveErr != nil {
		return errorEvent("resource recorded but saving failed: %v", saveErr)
	}
	evt := Event{Type: EvtResourceCreated, Resource: &created}
	b.broadcast(evt)
	return evt
}

func (b *Bridge) editResource(ctx context.Context, cmd Command) Event {
	updated, err := b.store.UpdateResource(ctx, *cmd.Resource)
	if errors.Is(err, store.ErrNotFound) {
		return errorEvent("resource %s not found", cmd.Resource.ID)
	}
	if err != nil {
		return errorEvent("resource updated but saving failed: %v", err)
	}
	evt := Event{Type: EvtResourceUpdated, Resource: &updated}
	b.broadcast(evt)
	return evt
}

func (b *Bridge) deleteResource(ctx context.Context, cmd Command) Event {
	err := b.store.DeleteResource(ctx, cmd.ID)
	if errors.Is(err, store.ErrNotFound) {
		return errorEvent("resource %s not found", cmd.ID)
	}
	if err != nil {
		return errorEvent("resource deleted but saving failed: %v", err)
	}
	evt := Event{Type: EvtResourceDeleted, ID: cmd.ID}
	b.broadcast(evt)
	return evt
}

// navigate selects an element in its containing page and centers the view
// on it. The host applies page-switch side effects asynchronously and
// offers no completion signal, so a bounded settle delay is waited before
// selecting, with a single retry on a miss.
func (b *Bridge) navigate(ctx context.Context, nodeID, pageName string) Event {
	exists, err := b.host.NodeExists(ctx, nodeID)
	if err != nil {
		return errorEvent("element lookup failed: %v", err)
	}
	if !exists {
		return errorEvent("element %s no longer exists in this document", nodeID)
	}

	if err := b.host.SwitchPage(ctx, pageName); err != nil {
		return errorEvent("page %q not found: %v", pageName, err)
	}
	b.sleep(ctx, b.settleDelay)

	if err := b.host.SelectAndCenter(ctx, nodeID); err != nil {
		b.sleep(ctx, b.settleDelay)
		if err := b.host.SelectAndCenter(ctx, nodeID); err != nil {
			return errorEvent("could not navigate to element %s: %v", nodeID, err)
		}
	}
	return Event{Type: EvtSelectionInfo, Selection: &canvas.Selection{NodeID: nodeID, PageName: pageName}}
}

func (b *Bridge) selectionInfo(ctx context.Context) Event {
	sel, err := b.host.Selection(ctx)
	if err != nil {
		return errorEvent("selection unavailable: %v", err)
	}
	evt := Event{Type: EvtSelectionInfo, Selection: sel}
	b.broadcast(evt)
	return evt
}

func (b *Bridge) authorName(ctx context.Context) string {
	user, err := b.host.CurrentUser(ctx)
	if err != nil {
		b.logger.Warn("current user unavailable", "error", err)
		return ""
	}
	return user.Name
}

func (b *Bridge) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
