package repositories

import (
	"context"
	"errors"
	"time"

	"garage-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TimeEntryRepository struct {
	DB *pgxpool.Pool
}

func NewTimeEntryRepository(db *pgxpool.Pool) *TimeEntryRepository {
	return &TimeEntryRepository{DB: db}
}

// ClockIn inserts the active entry. Exclusivity per (technician, item) is
// the partial unique index's job: two racing inserts resolve in the store
// and the loser comes back here as a unique violation.
func (r *TimeEntryRepository) ClockIn(ctx context.Context, e *models.JobCardTimeEntry) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO job_card_time_entries (company_id, item_id, technician_id, start_time, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, created_at`,
		e.CompanyID, e.ItemID, e.TechnicianID, e.StartTime,
	).Scan(&e.ID, &e.CreatedAt)
	if isUniqueViolation(err) {
		return models.Errorf(models.ErrConflict,
			"technician %d is already clocked in on item %d", e.TechnicianID, e.ItemID)
	}
	return err
}

func (r *TimeEntryRepository) Get(ctx context.Context, companyID, id int) (*models.JobCardTimeEntry, error) {
	var e models.JobCardTimeEntry
	err := r.DB.QueryRow(ctx,
		`SELECT id, company_id, item_id, technician_id, start_time, end_time,
			break_minutes, hours, is_active, created_at
		 FROM job_card_time_entries WHERE id = $1 AND company_id = $2`,
		id, companyID,
	).Scan(&e.ID, &e.CompanyID, &e.ItemID, &e.TechnicianID, &e.StartTime,
		&e.EndTime, &e.BreakMinutes, &e.Hours, &e.IsActive, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *TimeEntryRepository) ListByItem(ctx context.Context, companyID, itemID int) ([]models.JobCardTimeEntry, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, company_id, item_id, technician_id, start_time, end_time,
			break_minutes, hours, is_active, created_at
		 FROM job_card_time_entries WHERE item_id = $1 AND company_id = $2 ORDER BY id`,
		itemID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.JobCardTimeEntry
	for rows.Next() {
		var e models.JobCardTimeEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ItemID, &e.TechnicianID,
			&e.StartTime, &e.EndTime, &e.BreakMinutes, &e.Hours, &e.IsActive,
			&e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close finalizes the entry and folds its hours into the item's actual
// hours in one transaction: either both land or neither does. The
// is_active predicate makes a double clock-out a Conflict instead of a
// double-counted entry.
func (r *TimeEntryRepository) Close(ctx context.Context, companyID, id int, end time.Time, breakMinutes int, hours float64) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var itemID int
	err = tx.QueryRow(ctx,
		`UPDATE job_card_time_entries
		 SET end_time = $1, break_minutes = $2, hours = $3, is_active = FALSE
		 WHERE id = $4 AND company_id = $5 AND is_active
		 RETURNING item_id`,
		end, breakMinutes, hours, id, companyID,
	).Scan(&itemID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Errorf(models.ErrConflict, "time entry %d is not active", id)
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE job_card_items SET actual_hours = actual_hours + $1, updated_at = $2
		 WHERE id = $3 AND company_id = $4`,
		hours, end, itemID, companyID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
