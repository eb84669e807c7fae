package export

import (
	"context"
	"fmt"
	"log/slog"

	"easel/plugin/internal/canvas"
	"easel/plugin/internal/model"
)

// Service produces exports of the filtered decision view. The uploader is
// optional; upload delivery fails with ErrUploadUnavailable when object
// storage is not configured.
type Service struct {
	designBaseURL string
	uploader      *Uploader
	logger        *slog.Logger
}

func NewService(designBaseURL string, uploader *Uploader, logger *slog.Logger) *Service {
	return &Service{designBaseURL: designBaseURL, uploader: uploader, logger: logger}
}

// Export applies the request's filter to the given decisions and serializes
// the surviving records. The decisions are the store's snapshot for the
// bound document; the export must reflect exactly the filter the UI shows.
func (s *Service) Export(ctx context.Context, doc canvas.Document, decisions []model.Decision, req Request) (*Result, error) {
	filtered := Apply(decisions, req.Filter)
	markdown := RenderMarkdown(s.designBaseURL, doc, filtered)

	var result *Result
	switch req.Format {
	case FormatPDF:
		html, err := RenderHTML(s.designBaseURL, doc, filtered)
		if err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		pdf, err := exportPDF(html, "Design Decisions — "+doc.Name)
		if err != nil {
			return nil, err
		}
		result = pdf
	case FormatMarkdown, "":
		result = &Result{
			Data:     []byte(markdown),
			Filename: sanitizeFilename("Design Decisions — "+doc.Name) + ".md",
			MimeType: "text/markdown",
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}

	if req.Delivery == DeliveryUpload {
		if s.uploader == nil {
			return nil, ErrUploadUnavailable
		}
		link, err := s.uploader.Upload(ctx, result)
		if err != nil {
			return nil, err
		}
		result.URL = link
		s.logger.Info("export uploaded", "documentId", doc.ID, "filename", result.Filename)
	}

	return result, nil
}
