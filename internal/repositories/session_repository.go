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

type SessionRepository struct {
	DB       *pgxpool.Pool
	Sequence *SequenceRepository
}

func NewSessionRepository(db *pgxpool.Pool, seq *SequenceRepository) *SessionRepository {
	return &SessionRepository{DB: db, Sequence: seq}
}

const sessionColumns = `id, company_id, branch_id, client_id, vehicle_id, session_number,
	status, mileage_in, mileage_out, check_in_at, check_out_at,
	advisor_id, technician_id, cancel_reason, created_at, updated_at`

func scanSession(row pgx.Row) (*models.GarageSession, error) {
	var s models.GarageSession
	err := row.Scan(&s.ID, &s.CompanyID, &s.BranchID, &s.ClientID, &s.VehicleID,
		&s.SessionNumber, &s.Status, &s.MileageIn, &s.MileageOut, &s.CheckInAt,
		&s.CheckOutAt, &s.AdvisorID, &s.TechnicianID, &s.CancelReason,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create allocates the session number and inserts the row in one
// transaction.
func (r *SessionRepository) Create(ctx context.Context, s *models.GarageSession) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	number, err := r.Sequence.NextNumber(ctx, tx, s.CompanyID, ScopeSession, s.CheckInAt)
	if err != nil {
		return err
	}
	s.SessionNumber = number

	err = tx.QueryRow(ctx,
		`INSERT INTO garage_sessions (company_id, branch_id, client_id, vehicle_id,
			session_number, status, mileage_in, check_in_at, advisor_id, technician_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		s.CompanyID, s.BranchID, s.ClientID, s.VehicleID, s.SessionNumber,
		s.Status, s.MileageIn, s.CheckInAt, s.AdvisorID, s.TechnicianID,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Errorf(models.ErrConflict, "duplicate session number %s", s.SessionNumber)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *SessionRepository) Get(ctx context.Context, companyID, id int) (*models.GarageSession, error) {
	row := r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM garage_sessions WHERE id = $1 AND company_id = $2`, sessionColumns),
		id, companyID)
	return scanSession(row)
}

func (r *SessionRepository) List(ctx context.Context, companyID int, status string) ([]models.GarageSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM garage_sessions WHERE company_id = $1`, sessionColumns)
	args := []any{companyID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.GarageSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdateStatus is a compare-and-set: the row only moves if it is still in
// the status the caller validated against. A concurrent transition
// surfaces as Conflict rather than a silently lost update.
func (r *SessionRepository) UpdateStatus(ctx context.Context, companyID, id int, from, to models.SessionStatus, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE garage_sessions SET status = $1, updated_at = $2
		 WHERE id = $3 AND company_id = $4 AND status = $5`,
		to, now, id, companyID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "session %d changed concurrently", id)
	}
	return nil
}

func (r *SessionRepository) CheckOut(ctx context.Context, companyID, id, mileageOut int, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE garage_sessions
		 SET status = $1, mileage_out = $2, check_out_at = $3, updated_at = $3
		 WHERE id = $4 AND company_id = $5 AND status NOT IN ($6, $7)`,
		models.SessionClosed, mileageOut, now, id, companyID,
		models.SessionClosed, models.SessionCancelled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "session %d changed concurrently", id)
	}
	return nil
}

func (r *SessionRepository) Cancel(ctx context.Context, companyID, id int, reason string, now time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE garage_sessions
		 SET status = $1, cancel_reason = $2, updated_at = $3
		 WHERE id = $4 AND company_id = $5 AND status NOT IN ($1, $6)`,
		models.SessionCancelled, reason, now, id, companyID, models.SessionClosed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.Errorf(models.ErrConflict, "session %d changed concurrently", id)
	}
	return nil
}
