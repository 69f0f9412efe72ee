package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feedback-review-api/internal/models"
)

var feedbackRowColumns = []string{
	"id", "Feedback", "Avaliador_1", "Avaliador_2",
	"Resposta_avaliador_1", "Problemas_avaliador_1",
	"Resposta_avaliador_2", "Problemas_avaliador_2",
	"created_at", "updated_at",
}

func newFeedbackRepoMock(t *testing.T) (*FeedbackRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewFeedbackRepository(sqlxDB, nil), mock, func() {
		sqlxDB.Close()
	}
}

type observerStub struct {
	labels []string
}

func (o *observerStub) ObserveDBQuery(label string, duration time.Duration) {
	o.labels = append(o.labels, label)
}

func TestFeedbackRepositoryListPending(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()
	observer := &observerStub{}
	repo.observer = observer

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(feedbackRowColumns).
		AddRow(7, "Bom trabalho", "a@x.com", "b@x.com", nil, nil, nil, nil, created, created).
		AddRow(9, "Precisa melhorar", "A@X.com", "a@x.com", nil, nil, nil, nil, created, created)

	mock.ExpectQuery(`SELECT (.+) FROM "feedback_avaliacao" WHERE (.+)LOWER\(TRIM\(COALESCE\("Avaliador_1", ''\)\)\)(.+)"Resposta_avaliador_1" IS NULL(.+) ORDER BY "id" ASC`).
		WithArgs("a@x.com", "a@x.com").
		WillReturnRows(rows)

	records, err := repo.ListPending(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(7), records[0].ID)
	assert.Equal(t, "Bom trabalho", records[0].FeedbackText)
	require.NotNil(t, records[0].Reviewer1Email)
	assert.Equal(t, "a@x.com", *records[0].Reviewer1Email)
	assert.Nil(t, records[0].Reviewer1Answer)
	assert.Equal(t, created, records[1].CreatedAt)
	assert.Equal(t, []string{"feedback.list_pending"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListPendingError(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "feedback_avaliacao"`).WillReturnError(sql.ErrConnDone)

	_, err := repo.ListPending(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestFeedbackRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT (.+) FROM "feedback_avaliacao" WHERE \("id" = \$1\)`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns))

	_, err := repo.FindByID(context.Background(), 42)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestFeedbackRepositoryUpdateAnswerSetsProblems(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	updatedAt := created.Add(time.Hour)
	tags := "Texto genérico / vago"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "feedback_avaliacao" SET "Problemas_avaliador_1"=$1,"Resposta_avaliador_1"=$2,"updated_at"=$3 WHERE ("id" = $4) RETURNING`)).
		WithArgs(tags, "Não", sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns).
			AddRow(7, "Bom trabalho", "a@x.com", "b@x.com", "Não", tags, nil, nil, created, updatedAt))
	mock.ExpectCommit()

	record, err := repo.UpdateAnswer(context.Background(), UpdateAnswerParams{
		ID:          7,
		Slot:        models.SlotReviewer1,
		Answer:      models.AnswerNo,
		SetProblems: true,
		Problems:    &tags,
		UpdatedAt:   updatedAt,
	})
	require.NoError(t, err)
	require.NotNil(t, record.Reviewer1Answer)
	assert.Equal(t, "Não", *record.Reviewer1Answer)
	assert.True(t, record.UpdatedAt.After(record.CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryUpdateAnswerClearsProblems(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "feedback_avaliacao" SET "Problemas_avaliador_2"=NULL,"Resposta_avaliador_2"=$1,"updated_at"=$2 WHERE ("id" = $3)`)).
		WithArgs("Sim", sqlmock.AnyArg(), int64(3)).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns).
			AddRow(3, "Texto", "a@x.com", "b@x.com", nil, nil, "Sim", nil, now, now))
	mock.ExpectCommit()

	_, err := repo.UpdateAnswer(context.Background(), UpdateAnswerParams{
		ID:          3,
		Slot:        models.SlotReviewer2,
		Answer:      models.AnswerYes,
		SetProblems: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryUpdateAnswerLeavesProblemsUntouched(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "feedback_avaliacao" SET "Resposta_avaliador_1"=$1,"updated_at"=$2 WHERE ("id" = $3)`)).
		WithArgs("Não", sqlmock.AnyArg(), int64(5)).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns).
			AddRow(5, "Texto", "a@x.com", nil, "Não", "Falta de exemplos", nil, nil, now, now))
	mock.ExpectCommit()

	record, err := repo.UpdateAnswer(context.Background(), UpdateAnswerParams{
		ID:     5,
		Slot:   models.SlotReviewer1,
		Answer: models.AnswerNo,
	})
	require.NoError(t, err)
	require.NotNil(t, record.Reviewer1Problems)
	assert.Equal(t, "Falta de exemplos", *record.Reviewer1Problems)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryUpdateAnswerNotFound(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "feedback_avaliacao"`).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns))
	mock.ExpectRollback()

	_, err := repo.UpdateAnswer(context.Background(), UpdateAnswerParams{ID: 99, Slot: models.SlotReviewer1, Answer: models.AnswerYes})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryUpdateAnswerWriteOnceRejectsAnswered(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "feedback_avaliacao" SET (.+) WHERE (.+)"Resposta_avaliador_1" IS NULL`).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM feedback_avaliacao WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.UpdateAnswer(context.Background(), UpdateAnswerParams{
		ID:             7,
		Slot:           models.SlotReviewer1,
		Answer:         models.AnswerYes,
		OnlyUnanswered: true,
	})
	assert.ErrorIs(t, err, ErrSlotAnswered)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryUpdateAnswerWriteOnceMissingRecord(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "feedback_avaliacao"`).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns))
	mock.ExpectQuery(`SELECT 1 FROM feedback_avaliacao`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	_, err := repo.UpdateAnswer(context.Background(), UpdateAnswerParams{
		ID:             8,
		Slot:           models.SlotReviewer2,
		Answer:         models.AnswerYes,
		OnlyUnanswered: true,
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListReviewerWorkloads(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT email, COUNT\(\*\) AS pending FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"email", "pending"}).
			AddRow("a@x.com", 2).
			AddRow("b@x.com", 1))

	workloads, err := repo.ListReviewerWorkloads(context.Background())
	require.NoError(t, err)
	require.Len(t, workloads, 2)
	assert.Equal(t, ReviewerWorkload{Email: "a@x.com", Pending: 2}, workloads[0])
}

func TestFeedbackRepositoryInsertBatch(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	first := "a@x.com"
	blank := "  "
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "feedback_avaliacao"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	count, err := repo.InsertBatch(context.Background(), []NewFeedback{
		{FeedbackText: "Um", Reviewer1Email: &first},
		{FeedbackText: "Dois", Reviewer1Email: &first, Reviewer2Email: &blank},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryInsertBatchRollsBack(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "feedback_avaliacao"`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	_, err := repo.InsertBatch(context.Background(), []NewFeedback{{FeedbackText: "Um"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryEnsureSchemaAndPing(t *testing.T) {
	repo, mock, cleanup := newFeedbackRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS feedback_avaliacao`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, repo.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
