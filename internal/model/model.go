// Package model defines the records the plugin persists per document.
package model

import "time"

// Decision statuses. A decision created without a status starts as proposed.
const (
	StatusProposed   = "proposed"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
	StatusDeprecated = "deprecated"
	StatusSuperseded = "superseded"
)

var validStatuses = map[string]struct{}{
	StatusProposed:   {},
	StatusAccepted:   {},
	StatusRejected:   {},
	StatusDeprecated: {},
	StatusSuperseded: {},
}

// ValidStatus reports whether s is one of the known decision statuses.
func ValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

// Link is a titled external reference attached to a decision.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Decision is a recorded design choice. ID and Author are assigned at
// creation and never change afterwards; Timestamp is refreshed on every edit
// and therefore acts as a last-modified marker after the first edit.
//
// NodeID/NodeName/PageName optionally reference the element selected in the
// host document when the decision was recorded. The reference is pure data:
// it goes stale if the element is later deleted or moved.
type Decision struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Rationale string    `json:"rationale"`
	Context   string    `json:"context"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Links     []Link    `json:"links"`
	Pros      []string  `json:"pros"`
	Cons      []string  `json:"cons"`
	Tags      []string  `json:"tags"`
	NodeID    string    `json:"nodeId,omitempty"`
	NodeName  string    `json:"nodeName,omitempty"`
	PageName  string    `json:"pageName,omitempty"`
}

// Normalize fills defaults for optional fields so persisted records always
// carry concrete values. Older blobs may omit any of these on read.
func (d *Decision) Normalize() {
	if d.Status == "" {
		d.Status = StatusProposed
	}
	if d.Links == nil {
		d.Links = []Link{}
	}
	if d.Pros == nil {
		d.Pros = []string{}
	}
	if d.Cons == nil {
		d.Cons = []string{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
}

// Resource is an auxiliary external reference, independent of decisions.
// Identity and authorship rules match Decision.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	Author      string    `json:"author"`
	Tags        []string  `json:"tags"`
}

// Normalize fills defaults for optional fields.
func (r *Resource) Normalize() {
	if r.Tags == nil {
		r.Tags = []string{}
	}
}
