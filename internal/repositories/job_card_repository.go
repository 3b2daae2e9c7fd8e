package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garage-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobCardRepository struct {
	DB       *pgxpool.Pool
	Sequence *SequenceRepository
}

func NewJobCardRepository(db *pgxpool.Pool, seq *SequenceRepository) *JobCardRepository {
	return &JobCardRepository{DB: db, Sequence: seq}
}

const jobCardColumns = `id, company_id, session_id, job_card_number, title, status,
	is_approved, approved_at, approved_by_id, approval_notes,
	customer_authorized, customer_authorized_at, customer_authorization_method,
	estimated_hours, actual_hours, actual_start_at, actual_completion_at,
	version, created_at, updated_at`

func scanJobCard(row pgx.Row) (*models.JobCard, error) {
	var jc models.JobCard
	err := row.Scan(&jc.ID, &jc.CompanyID, &jc.SessionID, &jc.JobCardNumber,
		&jc.Title, &jc.Status, &jc.IsApproved, &jc.ApprovedAt, &jc.ApprovedByID,
		&jc.ApprovalNotes, &jc.CustomerAuthorized, &jc.CustomerAuthorizedAt,
		&jc.CustomerAuthorizationMethod, &jc.EstimatedHours, &jc.ActualHours,
		&jc.ActualStartAt, &jc.ActualCompletionAt, &jc.Version,
		&jc.CreatedAt, &jc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &jc, nil
}

// Create allocates the job card number and inserts the card. The partial
// unique index on (session_id) WHERE status <> 'cancelled' is what turns a
// duplicate live card into Conflict, regardless of interleaving.
func (r *JobCardRepository) Create(ctx context.Context, jc *models.JobCard) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	number, err := r.Sequence.NextNumber(ctx, tx, jc.CompanyID, ScopeJobCard, jc.CreatedAt)
	if err != nil {
		return err
	}
	jc.JobCardNumber = number

	err = tx.QueryRow(ctx,
		`INSERT INTO job_cards (company_id, session_id, job_card_number, title, status, estimated_hours)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, version, created_at`,
		jc.CompanyID, jc.SessionID, jc.JobCardNumber, jc.Title, jc.Status, jc.EstimatedHours,
	).Scan(&jc.ID, &jc.Version, &jc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Errorf(models.ErrConflict, "session %d already has a job card", jc.SessionID)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *JobCardRepository) Get(ctx context.Context, companyID, id int) (*models.JobCard, error) {
	row := r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM job_cards WHERE id = $1 AND company_id = $2`, jobCardColumns),
		id, companyID)
	return scanJobCard(row)
}

func (r *JobCardRepository) GetBySession(ctx context.Context, companyID, sessionID int) (*models.JobCard, error) {
	row := r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM job_cards WHERE session_id = $1 AND company_id = $2 AND status <> $3`, jobCardColumns),
		sessionID, companyID, models.JobCardCancelled)
	return scanJobCard(row)
}

// update applies assignments predicated on the card's version. Zero rows
// means a concurrent writer got there first.
func (r *JobCardRepository) update(ctx context.Context, jc *models.JobCard, set string, args ...any) error {
	query := fmt.Sprintf(
		`UPDATE job_cards SET %s, version = version + 1
		 WHERE id = $1 AND company_id = $2 AND version = $3`, set)
	params := append([]any{jc.ID, jc.CompanyID, jc.Version}, args...)
	tag, err := r.DB.Exec(ctx, query, params...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "job card %d changed concurrently", jc.ID)
	}
	jc.Version++
	return nil
}

func (r *JobCardRepository) SetApproval(ctx context.Context, jc *models.JobCard, approvedBy int, notes string, now time.Time) error {
	return r.update(ctx, jc,
		`is_approved = TRUE, approved_at = $4, approved_by_id = $5, approval_notes = $6, updated_at = $4`,
		now, approvedBy, notes)
}

func (r *JobCardRepository) SetAuthorization(ctx context.Context, jc *models.JobCard, method string, now time.Time) error {
	return r.update(ctx, jc,
		`customer_authorized = TRUE, customer_authorized_at = $4, customer_authorization_method = $5, updated_at = $4`,
		now, method)
}

func (r *JobCardRepository) UpdateStatus(ctx context.Context, jc *models.JobCard, to models.JobCardStatus, now time.Time) error {
	return r.update(ctx, jc, `status = $4, updated_at = $5`, to, now)
}

func (r *JobCardRepository) StartWork(ctx context.Context, jc *models.JobCard, now time.Time) error {
	return r.update(ctx, jc,
		`status = $4, actual_start_at = COALESCE(actual_start_at, $5), updated_at = $5`,
		models.JobCardInProgress, now)
}

// CompleteWork moves the card to completed and rolls up actual hours from
// its items in the same statement: the totals never drift from the rows.
func (r *JobCardRepository) CompleteWork(ctx context.Context, jc *models.JobCard, now time.Time) error {
	return r.update(ctx, jc,
		`status = $4, actual_completion_at = $5,
		 actual_hours = (SELECT COALESCE(SUM(actual_hours), 0) FROM job_card_items
		                 WHERE job_card_id = job_cards.id),
		 updated_at = $5`,
		models.JobCardCompleted, now)
}
