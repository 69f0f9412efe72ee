package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/models"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
	"github.com/noah-isme/feedback-review-api/pkg/export"
)

var exportHeaders = []string{
	"id",
	"Feedback",
	"Avaliador_1",
	"Resposta_avaliador_1",
	"Problemas_avaliador_1",
	"Avaliador_2",
	"Resposta_avaliador_2",
	"Problemas_avaliador_2",
	"created_at",
	"updated_at",
}

type feedbackLister interface {
	ListAll(ctx context.Context) ([]models.FeedbackRecord, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ExportService dumps every feedback record, answers included, to a file.
type ExportService struct {
	repo      feedbackLister
	storage   fileStorage
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. storage may be nil when callers only need Render.
func NewExportService(repo feedbackLister, storage fileStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:    repo,
		storage: storage,
		renderers: map[export.Format]export.Renderer{
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatXLSX: export.NewXLSXExporter(),
			export.FormatPDF:  export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Render returns the encoded dump.
func (s *ExportService) Render(ctx context.Context, format export.Format) ([]byte, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list feedback records")
	}
	payload, err := renderer.Render(buildFeedbackDataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return payload, nil
}

// Export renders the dump and saves it, returning the written path.
func (s *ExportService) Export(ctx context.Context, format export.Format) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("export storage not configured")
	}
	payload, err := s.Render(ctx, format)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("feedback_avaliacao_%s.%s", s.now().UTC().Format("20060102_150405"), format)
	path, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", err
	}
	s.logger.Info("feedback export written", zap.String("path", path), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return path, nil
}

func buildFeedbackDataset(records []models.FeedbackRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, map[string]string{
			"id":                    strconv.FormatInt(record.ID, 10),
			"Feedback":              record.FeedbackText,
			"Avaliador_1":           optional(record.Reviewer1Email),
			"Resposta_avaliador_1":  optional(record.Reviewer1Answer),
			"Problemas_avaliador_1": optional(record.Reviewer1Problems),
			"Avaliador_2":           optional(record.Reviewer2Email),
			"Resposta_avaliador_2":  optional(record.Reviewer2Answer),
			"Problemas_avaliador_2": optional(record.Reviewer2Problems),
			"created_at":            record.CreatedAt.UTC().Format(time.RFC3339),
			"updated_at":            record.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Title:   "Avaliação de feedbacks",
		Headers: exportHeaders,
		Rows:    rows,
	}
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
