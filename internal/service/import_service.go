package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/models"
	"github.com/noah-isme/feedback-review-api/internal/repository"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
)

type feedbackInserter interface {
	InsertBatch(ctx context.Context, items []repository.NewFeedback) (int, error)
}

// ImportService bulk-loads unanswered feedback records.
type ImportService struct {
	repo      feedbackInserter
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(repo feedbackInserter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Import validates rows and inserts the valid ones in one transaction. Invalid rows
// are reported, not fatal.
func (s *ImportService) Import(ctx context.Context, rows []dto.ImportRow) (*dto.ImportResult, error) {
	result := &dto.ImportResult{}
	items := make([]repository.NewFeedback, 0, len(rows))
	for _, row := range rows {
		row.Feedback = strings.TrimSpace(row.Feedback)
		row.Reviewer1 = models.NormalizeEmail(row.Reviewer1)
		row.Reviewer2 = models.NormalizeEmail(row.Reviewer2)
		if err := s.validator.Struct(row); err != nil {
			result.Rejected = append(result.Rejected, dto.ImportIssue{Line: row.Line, Reason: describeValidation(err)})
			continue
		}
		items = append(items, repository.NewFeedback{
			FeedbackText:   row.Feedback,
			Reviewer1Email: emptyToNil(row.Reviewer1),
			Reviewer2Email: emptyToNil(row.Reviewer2),
		})
	}

	inserted, err := s.repo.InsertBatch(ctx, items)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to import feedback records")
	}
	result.Inserted = inserted
	if inserted > 0 {
		s.cache.InvalidateAllPending(ctx)
	}
	s.metrics.ObserveImport(inserted)
	s.logger.Info("feedback import finished", zap.Int("inserted", inserted), zap.Int("rejected", len(result.Rejected)))
	return result, nil
}

// ParseCSV reads rows with a header naming Feedback, Avaliador_1 and Avaliador_2.
func ParseCSV(r io.Reader) ([]dto.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return mapImportRows(records)
}

// ParseXLSX reads the first sheet of a workbook with the same header as ParseCSV.
func ParseXLSX(r io.Reader) ([]dto.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %s: %w", sheets[0], err)
	}
	return mapImportRows(records)
}

func mapImportRows(records [][]string) ([]dto.ImportRow, error) {
	if len(records) == 0 {
		return nil, errors.New("import file is empty")
	}
	index := map[string]int{}
	for i, name := range records[0] {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))] = i
	}
	feedbackCol, ok := index["feedback"]
	if !ok {
		return nil, errors.New(`import header must contain a "Feedback" column`)
	}
	column := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	rows := make([]dto.ImportRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		feedback := ""
		if feedbackCol < len(record) {
			feedback = record[feedbackCol]
		}
		rows = append(rows, dto.ImportRow{
			Line:      i + 2,
			Feedback:  feedback,
			Reviewer1: column(record, "avaliador_1"),
			Reviewer2: column(record, "avaliador_2"),
		})
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func emptyToNil(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
