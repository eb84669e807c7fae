package export

import (
	"fmt"
	"strings"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/model"
)

// ElementURL builds the deep link to a referenced element:
// https://<host>/design/<documentId>/<sanitizedName>?node-id=<nodeId>
// with spaces in the display name replaced by dashes.
func ElementURL(baseURL string, doc canvas.Document, nodeID string) string {
	name := strings.ReplaceAll(doc.Name, " ", "-")
	return fmt.Sprintf("%s/design/%s/%s?node-id=%s", strings.TrimSuffix(baseURL, "/"), doc.ID, name, nodeID)
}

// RenderMarkdown serializes the decision list to a markdown document. The
// list is expected to be pre-filtered; ordering is preserved as given.
func RenderMarkdown(baseURL string, doc canvas.Document, decisions []model.Decision) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Design Decisions — %s\n\n", doc.Name)
	if len(decisions) == 0 {
		b.WriteString("_No decisions recorded._\n")
		return b.String()
	}

	for _, d := range decisions {
		fmt.Fprintf(&b, "## %s\n\n", d.Title)
		fmt.Fprintf(&b, "- **Status:** %s\n", d.Status)
		fmt.Fprintf(&b, "- **Author:** %s\n", d.Author)
		fmt.Fprintf(&b, "- **Date:** %s\n", d.Timestamp.Format("2006-01-02"))
		if d.NodeID != "" {
			label := d.NodeName
			if label == "" {
				label = d.NodeID
			}
			fmt.Fprintf(&b, "- **Element:** [%s](%s)\n", label, ElementURL(baseURL, doc, d.NodeID))
		}
		if len(d.Tags) > 0 {
			fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(d.Tags, ", "))
		}
		b.WriteString("\n")

		if d.Context != "" {
			fmt.Fprintf(&b, "**Context:** %s\n\n", d.Context)
		}
		if d.Rationale != "" {
			fmt.Fprintf(&b, "**Rationale:** %s\n\n", d.Rationale)
		}
		if len(d.Pros) > 0 {
			b.WriteString("**Pros:**\n\n")
			for _, pro := range d.Pros {
				fmt.Fprintf(&b, "- %s\n", pro)
			}
			b.WriteString("\n")
		}
		if len(d.Cons) > 0 {
			b.WriteString("**Cons:**\n\n")
			for _, con := range d.Cons {
				fmt.Fprintf(&b, "- %s\n", con)
			}
			b.WriteString("\n")
		}
		if len(d.Links) > 0 {
			b.WriteString("**Links:**\n\n")
			for _, link := range d.Links {
				fmt.Fprintf(&b, "- [%s](%s)\n", link.Title, link.URL)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
