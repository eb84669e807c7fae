package bridge

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/model"
)

// Command types accepted from the UI.
const (
	CmdCreateDecision = "create-decision"
	CmdEditDecision   = "edit-decision"
	CmdDeleteDecision = "delete-decision"
	CmdCreateResource = "create-resource"
	CmdEditResource   = "edit-resource"
	CmdDeleteResource = "delete-resource"
	CmdGetUserInfo    = "get-user-info"
	CmdGetDocumentID  = "get-document-id"
	CmdNavigateToNode = "navigate-to-node"
	CmdClose          = "close"

	// cmdSelectionChanged is raised internally when the host reports a
	// selection change; it is not part of the UI command surface.
	cmdSelectionChanged = "selection-changed"
)

// Event types emitted to the UI.
const (
	EvtLoadDecisions   = "load-decisions"
	EvtLoadResources   = "load-resources"
	EvtDecisionCreated = "decision-created"
	EvtDecisionUpdated = "decision-updated"
	EvtDecisionDeleted = "decision-deleted"
	EvtResourceCreated = "resource-created"
	EvtResourceUpdated = "resource-updated"
	EvtResourceDeleted = "resource-deleted"
	EvtSelectionInfo   = "selection-info"
	EvtUserInfo        = "user-info"
	EvtDocumentID      = "document-id"
	EvtClosed          = "closed"
	EvtError           = "error"
)

// Command is one tagged message from the UI to the backend.
type Command struct {
	Type     string          `json:"type"`
	Decision *model.Decision `json:"decision,omitempty"`
	Resource *model.Resource `json:"resource,omitempty"`
	ID       string          `json:"id,omitempty"`
	NodeID   string          `json:"nodeId,omitempty"`
	PageName string          `json:"pageName,omitempty"`
}

// Event is one tagged message from the backend to the UI. Every command
// produces exactly one terminal event; load and selection events are also
// broadcast unsolicited when the document or selection changes.
type Event struct {
	Type         string            `json:"type"`
	Decisions    []model.Decision  `json:"decisions,omitempty"`
	Resources    []model.Resource  `json:"resources,omitempty"`
	Decision     *model.Decision   `json:"decision,omitempty"`
	Resource     *model.Resource   `json:"resource,omitempty"`
	ID           string            `json:"id,omitempty"`
	DocumentID   string            `json:"documentId,omitempty"`
	DocumentName string            `json:"documentName,omitempty"`
	User         *canvas.User      `json:"user,omitempty"`
	Selection    *canvas.Selection `json:"selection,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// Validate checks the command's shape before it reaches the store. Invalid
// commands never mutate anything.
func (c Command) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In(
			CmdCreateDecision, CmdEditDecision, CmdDeleteDecision,
			CmdCreateResource, CmdEditResource, CmdDeleteResource,
			CmdGetUserInfo, CmdGetDocumentID, CmdNavigateToNode, CmdClose,
		)),
	); err != nil {
		return err
	}

	switch c.Type {
	case CmdCreateDecision:
		if c.Decision == nil {
			return fmt.Errorf("decision payload is required")
		}
		if err := validation.ValidateStruct(c.Decision,
			validation.Field(&c.Decision.Title, validation.Required),
			validation.Field(&c.Decision.Rationale, validation.Required),
			validation.Field(&c.Decision.Context, validation.Required),
		); err != nil {
			return err
		}
		return validStatus(c.Decision.Status)
	case CmdEditDecision:
		if c.Decision == nil {
			return fmt.Errorf("decision payload is required")
		}
		if err := validation.ValidateStruct(c.Decision,
			validation.Field(&c.Decision.ID, validation.Required),
			validation.Field(&c.Decision.Title, validation.Required),
		); err != nil {
			return err
		}
		return validStatus(c.Decision.Status)
	case CmdCreateResource:
		if c.Resource == nil {
			return fmt.Errorf("resource payload is required")
		}
		return validation.ValidateStruct(c.Resource,
			validation.Field(&c.Resource.Title, validation.Required),
			validation.Field(&c.Resource.URL, validation.Required),
		)
	case CmdEditResource:
		if c.Resource == nil {
			return fmt.Errorf("resource payload is required")
		}
		return validation.ValidateStruct(c.Resource,
			validation.Field(&c.Resource.ID, validation.Required),
			validation.Field(&c.Resource.Title, validation.Required),
		)
	case CmdDeleteDecision, CmdDeleteResource:
		return validation.ValidateStruct(&c,
			validation.Field(&c.ID, validation.Required),
		)
	case CmdNavigateToNode:
		return validation.ValidateStruct(&c,
			validation.Field(&c.NodeID, validation.Required),
			validation.Field(&c.PageName, validation.Required),
		)
	}
	return nil
}

func validStatus(status string) error {
	if status != "" && !model.ValidStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	return nil
}

func errorEvent(format string, args ...any) Event {
	return Event{Type: EvtError, Message: fmt.Sprintf(format, args...)}
}
