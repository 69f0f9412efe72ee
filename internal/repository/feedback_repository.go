package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feedback-review-api/internal/models"
)

const feedbackTable = "feedback_avaliacao"

// ErrSlotAnswered is returned by UpdateAnswer in write-once mode when the record
// exists but the slot already carries an answer.
var ErrSlotAnswered = errors.New("slot already answered")

const createFeedbackTable = `CREATE TABLE IF NOT EXISTS feedback_avaliacao (
    id SERIAL PRIMARY KEY,
    "Feedback" TEXT NOT NULL,
    "Avaliador_1" VARCHAR(255),
    "Avaliador_2" VARCHAR(255),
    "Resposta_avaliador_1" VARCHAR(10),
    "Problemas_avaliador_1" TEXT,
    "Resposta_avaliador_2" VARCHAR(10),
    "Problemas_avaliador_2" TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'utc'),
    updated_at TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'utc')
)`

var feedbackColumns = []interface{}{
	goqu.C("id"),
	goqu.C("Feedback"),
	goqu.C("Avaliador_1"),
	goqu.C("Avaliador_2"),
	goqu.C("Resposta_avaliador_1"),
	goqu.C("Problemas_avaliador_1"),
	goqu.C("Resposta_avaliador_2"),
	goqu.C("Problemas_avaliador_2"),
	goqu.C("created_at"),
	goqu.C("updated_at"),
}

// QueryObserver receives query timings, typically the metrics service.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// UpdateAnswerParams describes one slot write.
type UpdateAnswerParams struct {
	ID     int64
	Slot   models.Slot
	Answer models.Answer
	// SetProblems controls whether the problems column is written at all. When true,
	// a nil Problems stores NULL.
	SetProblems    bool
	Problems       *string
	OnlyUnanswered bool
	UpdatedAt      time.Time
}

// NewFeedback is a record to be inserted by bulk import.
type NewFeedback struct {
	FeedbackText   string
	Reviewer1Email *string
	Reviewer2Email *string
}

// ReviewerWorkload is a reviewer email with the number of slots it still owes.
type ReviewerWorkload struct {
	Email   string `db:"email"`
	Pending int    `db:"pending"`
}

// FeedbackRepository persists feedback records in the feedback_avaliacao table.
type FeedbackRepository struct {
	db       *sqlx.DB
	builder  *goqu.Database
	observer QueryObserver
}

// NewFeedbackRepository builds the repository over a shared connection handle.
func NewFeedbackRepository(db *sqlx.DB, observer QueryObserver) *FeedbackRepository {
	return &FeedbackRepository{
		db:       db,
		builder:  goqu.New("postgres", db.DB),
		observer: observer,
	}
}

// EnsureSchema creates the feedback table when missing.
func (r *FeedbackRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFeedbackTable); err != nil {
		return fmt.Errorf("create feedback table: %w", err)
	}
	return nil
}

// Ping checks storage reachability with a trivial statement.
func (r *FeedbackRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.GetContext(ctx, &one, "SELECT 1"); err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	return nil
}

// ListPending returns records where either slot belongs to email and is still
// unanswered, ordered by id. email must already be normalized.
func (r *FeedbackRepository) ListPending(ctx context.Context, email string) ([]models.FeedbackRecord, error) {
	defer r.observe("feedback.list_pending", time.Now())

	ds := r.builder.From(feedbackTable).
		Select(feedbackColumns...).
		Where(goqu.Or(
			pendingSlotExpr(models.SlotReviewer1, email),
			pendingSlotExpr(models.SlotReviewer2, email),
		)).
		Order(goqu.C("id").Asc()).
		Prepared(true)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	var records []models.FeedbackRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list pending feedback: %w", err)
	}
	return records, nil
}

// FindByID loads a record. It returns sql.ErrNoRows when absent.
func (r *FeedbackRepository) FindByID(ctx context.Context, id int64) (*models.FeedbackRecord, error) {
	defer r.observe("feedback.find_by_id", time.Now())

	query, args, err := r.builder.From(feedbackTable).
		Select(feedbackColumns...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	var record models.FeedbackRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateAnswer writes the answer (and optionally the problems) of one slot and
// refreshes updated_at, returning the updated row. It returns sql.ErrNoRows when
// the record does not exist and ErrSlotAnswered when OnlyUnanswered rejected it.
func (r *FeedbackRepository) UpdateAnswer(ctx context.Context, params UpdateAnswerParams) (record *models.FeedbackRecord, err error) {
	defer r.observe("feedback.update_answer", time.Now())

	if !params.Slot.Valid() {
		return nil, fmt.Errorf("update answer: invalid slot %d", int(params.Slot))
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = time.Now().UTC()
	}

	set := goqu.Record{
		params.Slot.AnswerColumn(): string(params.Answer),
		"updated_at":               params.UpdatedAt,
	}
	if params.SetProblems {
		if params.Problems == nil {
			set[params.Slot.ProblemsColumn()] = goqu.L("NULL")
		} else {
			set[params.Slot.ProblemsColumn()] = *params.Problems
		}
	}

	where := []exp.Expression{goqu.C("id").Eq(params.ID)}
	if params.OnlyUnanswered {
		where = append(where, goqu.L(fmt.Sprintf(`%q IS NULL`, params.Slot.AnswerColumn())))
	}

	query, args, err := r.builder.Update(feedbackTable).
		Set(set).
		Where(where...).
		Returning(feedbackColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update answer tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var updated models.FeedbackRecord
	err = tx.QueryRowxContext(ctx, query, args...).StructScan(&updated)
	switch {
	case errors.Is(err, sql.ErrNoRows) && params.OnlyUnanswered:
		var exists int
		if err = tx.GetContext(ctx, &exists, `SELECT 1 FROM feedback_avaliacao WHERE id = $1`, params.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, sql.ErrNoRows
			}
			return nil, fmt.Errorf("check feedback exists: %w", err)
		}
		return nil, ErrSlotAnswered
	case errors.Is(err, sql.ErrNoRows):
		return nil, sql.ErrNoRows
	case err != nil:
		return nil, fmt.Errorf("update answer: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update answer tx: %w", err)
	}
	return &updated, nil
}

// ListReviewerWorkloads returns every reviewer email that still owes at least one
// slot, with the number of owed slots, ordered by email.
func (r *FeedbackRepository) ListReviewerWorkloads(ctx context.Context) ([]ReviewerWorkload, error) {
	defer r.observe("feedback.list_workloads", time.Now())

	const query = `SELECT email, COUNT(*) AS pending FROM (
    SELECT LOWER(TRIM("Avaliador_1")) AS email FROM feedback_avaliacao WHERE "Resposta_avaliador_1" IS NULL
    UNION ALL
    SELECT LOWER(TRIM("Avaliador_2")) AS email FROM feedback_avaliacao WHERE "Resposta_avaliador_2" IS NULL
) owed WHERE COALESCE(email, '') <> '' GROUP BY email ORDER BY email ASC`

	var workloads []ReviewerWorkload
	if err := r.db.SelectContext(ctx, &workloads, query); err != nil {
		return nil, fmt.Errorf("list reviewer workloads: %w", err)
	}
	return workloads, nil
}

// ListAll returns every record ordered by id.
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]models.FeedbackRecord, error) {
	defer r.observe("feedback.list_all", time.Now())

	query, args, err := r.builder.From(feedbackTable).
		Select(feedbackColumns...).
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var records []models.FeedbackRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return records, nil
}

const insertBatchSize = 500

// InsertBatch inserts new unanswered records in a single transaction and returns
// the number of rows written.
func (r *FeedbackRepository) InsertBatch(ctx context.Context, items []NewFeedback) (int, error) {
	defer r.observe("feedback.insert_batch", time.Now())

	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}

	now := time.Now().UTC()
	total := 0
	for start := 0; start < len(items); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(items) {
			end = len(items)
		}

		rows := make([]interface{}, 0, end-start)
		for _, item := range items[start:end] {
			rows = append(rows, goqu.Record{
				"Feedback":    item.FeedbackText,
				"Avaliador_1": nullable(item.Reviewer1Email),
				"Avaliador_2": nullable(item.Reviewer2Email),
				"created_at":  now,
				"updated_at":  now,
			})
		}

		query, args, err := r.builder.Insert(feedbackTable).Rows(rows...).Prepared(true).ToSQL()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("build import query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert feedback batch: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert feedback batch: %w", err)
		}
		total += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import tx: %w", err)
	}
	return total, nil
}

func (r *FeedbackRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

func pendingSlotExpr(slot models.Slot, email string) exp.ExpressionList {
	return goqu.And(
		goqu.L(fmt.Sprintf(`LOWER(TRIM(COALESCE(%q, '')))`, slot.EmailColumn())).Eq(email),
		goqu.L(fmt.Sprintf(`%q IS NULL`, slot.AnswerColumn())),
	)
}

// nullable maps blank strings to SQL NULL.
func nullable(value *string) interface{} {
	if value == nil || strings.TrimSpace(*value) == "" {
		return goqu.L("NULL")
	}
	return strings.TrimSpace(*value)
}
