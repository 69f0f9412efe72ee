package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/repository"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
)

type inserterStub struct {
	items []repository.NewFeedback
	err   error
}

func (i *inserterStub) InsertBatch(_ context.Context, items []repository.NewFeedback) (int, error) {
	if i.err != nil {
		return 0, i.err
	}
	i.items = append(i.items, items...)
	return len(items), nil
}

func TestParseCSV(t *testing.T) {
	input := "\uFEFFAvaliador_1,FEEDBACK,Avaliador_2\n" +
		"A@X.com ,\"Bom trabalho, continue\",b@x.com\n" +
		",,\n" +
		"c@x.com,Precisa melhorar\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, dto.ImportRow{Line: 2, Feedback: "Bom trabalho, continue", Reviewer1: "A@X.com ", Reviewer2: "b@x.com"}, rows[0])
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "", rows[1].Reviewer2)
}

func TestParseCSVRequiresFeedbackColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Avaliador_1\na@x.com\n"))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Feedback", "Avaliador_1", "Avaliador_2"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Ótima comunicação", "a@x.com", "b@x.com"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ParseXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ótima comunicação", rows[0].Feedback)
	assert.Equal(t, "b@x.com", rows[0].Reviewer2)
}

func TestImportServiceImport(t *testing.T) {
	repo := &inserterStub{}
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	cache.SetPending(context.Background(), "a@x.com", nil)
	svc := NewImportService(repo, cache, NewMetricsService(), nil, nil)

	result, err := svc.Import(context.Background(), []dto.ImportRow{
		{Line: 2, Feedback: " Bom trabalho ", Reviewer1: " A@X.com", Reviewer2: ""},
		{Line: 3, Feedback: "   ", Reviewer1: "a@x.com"},
		{Line: 4, Feedback: "Texto", Reviewer1: "not-an-email"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 3, result.Rejected[0].Line)
	assert.Contains(t, result.Rejected[0].Reason, "Feedback")
	assert.Contains(t, result.Rejected[1].Reason, "Reviewer1")

	require.Len(t, repo.items, 1)
	assert.Equal(t, "Bom trabalho", repo.items[0].FeedbackText)
	require.NotNil(t, repo.items[0].Reviewer1Email)
	assert.Equal(t, "a@x.com", *repo.items[0].Reviewer1Email)
	assert.Nil(t, repo.items[0].Reviewer2Email)
	assert.Empty(t, cacheRepo.values)
}

func TestImportServiceStorageError(t *testing.T) {
	svc := NewImportService(&inserterStub{err: errors.New("down")}, nil, nil, nil, nil)

	_, err := svc.Import(context.Background(), []dto.ImportRow{{Line: 2, Feedback: "x"}})
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}
