// Package export serializes the filtered decision view for sharing outside
// the plugin: markdown for clipboard or download, PDF via headless Chrome,
// and optional upload to object storage.
package export

import "errors"

// Format is the export output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// Delivery selects how the export is handed back.
type Delivery string

const (
	// DeliveryInline returns the serialized content for copy-to-clipboard.
	DeliveryInline Delivery = "inline"
	// DeliveryDownload returns the content as a file attachment.
	DeliveryDownload Delivery = "download"
	// DeliveryUpload stores the file in object storage and returns a link.
	DeliveryUpload Delivery = "upload"
)

// Filter is the same predicate the UI applies to the decision list: a linear
// scan, no query language.
type Filter struct {
	Query  string
	Status string
	Tag    string
}

// Request contains parameters for an export operation.
type Request struct {
	Format   Format
	Delivery Delivery
	Filter   Filter
}

// Result contains the export output. URL is set only for upload delivery.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	URL      string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrUploadUnavailable indicates object storage is not configured.
	ErrUploadUnavailable = errors.New("export upload unavailable")
)
